package events

import (
	"context"
	"time"

	"courtbook/pkg/kafka"
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
)

const (
	TypeBookingCreated     = "booking.created"
	TypeBookingRescheduled = "booking.rescheduled"
	TypeBookingCancelled   = "booking.cancelled"
	TypeSeriesCreated      = "booking.series.created"

	SchemaVersion = "1"
)

// BookingEvent is the payload for single-booking lifecycle events.
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	FacilityID string    `json:"facility_id"`
	Title      string    `json:"title"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	SeriesID   string    `json:"series_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SeriesEvent summarizes a best-effort series creation.
type SeriesEvent struct {
	SeriesID     string                    `json:"series_id"`
	FacilityID   string                    `json:"facility_id"`
	CreatedCount int                       `json:"created_count"`
	SkippedCount int                       `json:"skipped_count"`
	Skipped      []model.SkippedOccurrence `json:"skipped,omitempty"`
	OccurredAt   time.Time                 `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. Publishing is best-effort:
// failures are logged, never surfaced to the caller.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingRescheduled(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
	SeriesCreated(ctx context.Context, facilityID string, result *model.SeriesResult)
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	p.publishBooking(ctx, TypeBookingCreated, booking)
}

func (p *kafkaPublisher) BookingRescheduled(ctx context.Context, booking *model.Booking) {
	p.publishBooking(ctx, TypeBookingRescheduled, booking)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {
	p.publishBooking(ctx, TypeBookingCancelled, booking)
}

func (p *kafkaPublisher) publishBooking(ctx context.Context, eventType string, booking *model.Booking) {
	payload := BookingEvent{
		BookingID:  booking.ID,
		FacilityID: booking.FacilityID,
		Title:      booking.Title,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		Status:     booking.Status,
		SeriesID:   booking.SeriesID,
		OccurredAt: time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(booking.FacilityID).
		WithValue(payload).
		WithEventID("").
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) SeriesCreated(ctx context.Context, facilityID string, result *model.SeriesResult) {
	payload := SeriesEvent{
		SeriesID:     result.SeriesID,
		FacilityID:   facilityID,
		CreatedCount: result.CreatedCount,
		SkippedCount: len(result.Skipped),
		Skipped:      result.Skipped,
		OccurredAt:   time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(facilityID).
		WithValue(payload).
		WithEventID("").
		WithEventType(TypeSeriesCreated).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish series event",
			"series_id", result.SeriesID,
			"error", err,
		)
	}
}

// NoopPublisher drops all events. Used when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) BookingCreated(context.Context, *model.Booking)             {}
func (NoopPublisher) BookingRescheduled(context.Context, *model.Booking)         {}
func (NoopPublisher) BookingCancelled(context.Context, *model.Booking)           {}
func (NoopPublisher) SeriesCreated(context.Context, string, *model.SeriesResult) {}
