package model

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Booking struct {
	ID         string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	FacilityID string            `json:"facility_id" bson:"facility_id" validate:"required,mongodb"`
	Title      string            `json:"title" bson:"title" validate:"required,min=2,max=100"`
	StartTime  time.Time         `json:"start_time" bson:"start_time" validate:"required"`
	EndTime    time.Time         `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status     string            `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	SeriesID   string            `json:"series_id,omitempty" bson:"series_id,omitempty" validate:"omitempty,uuid4"`
	BookedBy   map[string]string `json:"booked_by" bson:"booked_by" validate:"required,contacts_map"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Window returns the booking's validated time window.
func (b *Booking) Window() (TimeWindow, error) {
	return NewTimeWindow(b.StartTime, b.EndTime)
}

type BookingUpdate struct {
	Title     string             `json:"title,omitempty" validate:"omitempty,min=2,max=100"`
	StartTime *time.Time         `json:"start_time,omitempty" validate:"omitempty"`
	EndTime   *time.Time         `json:"end_time,omitempty" validate:"omitempty"`
	BookedBy  *map[string]string `json:"booked_by,omitempty" validate:"omitempty,contacts_map"`
}

// BookingRequest is the ingress shape for POST /bookings. The recurrence
// fields are optional; when Recurring is set the request expands into a series.
type BookingRequest struct {
	Booking          `bson:",inline"`
	Recurring        bool   `json:"recurring,omitempty" bson:"-"`
	RecurringPattern string `json:"recurring_pattern,omitempty" bson:"-" validate:"omitempty,oneof=daily weekly monthly"`
	RecurringUntil   string `json:"recurring_until,omitempty" bson:"-"`
}
