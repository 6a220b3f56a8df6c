package notifier

import (
	"context"
	"fmt"

	"courtbook/internal/bookings/events"
	"courtbook/pkg/kafka"
	"courtbook/pkg/logger"
)

// Dispatcher consumes booking lifecycle events and notifies interested
// parties. Delivery is log-based for now; the handler shape matches the
// consumer contract so real channels can be added behind it.
type Dispatcher struct {
	log *logger.Logger
}

func NewDispatcher(log *logger.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// Handle routes a consumed message by its event-type header.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	eventType := msg.GetEventType()

	switch eventType {
	case events.TypeBookingCreated, events.TypeBookingRescheduled, events.TypeBookingCancelled:
		return d.handleBooking(eventType, msg)
	case events.TypeSeriesCreated:
		return d.handleSeries(msg)
	default:
		d.log.Warn("Skipping message with unknown event type",
			"event_type", eventType,
			"event_id", msg.GetEventID(),
			"topic", msg.Topic,
		)
		return nil
	}
}

func (d *Dispatcher) handleBooking(eventType string, msg kafka.Message) error {
	var event events.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return fmt.Errorf("failed to decode booking event: %w", err)
	}

	d.log.Info("Booking notification dispatched",
		"event_type", eventType,
		"event_id", msg.GetEventID(),
		"booking_id", event.BookingID,
		"facility_id", event.FacilityID,
		"start_time", event.StartTime,
		"end_time", event.EndTime,
		"status", event.Status,
	)

	return nil
}

func (d *Dispatcher) handleSeries(msg kafka.Message) error {
	var event events.SeriesEvent
	if err := msg.DecodeValue(&event); err != nil {
		return fmt.Errorf("failed to decode series event: %w", err)
	}

	d.log.Info("Series notification dispatched",
		"event_id", msg.GetEventID(),
		"series_id", event.SeriesID,
		"facility_id", event.FacilityID,
		"created_count", event.CreatedCount,
		"skipped_count", event.SkippedCount,
	)

	return nil
}
