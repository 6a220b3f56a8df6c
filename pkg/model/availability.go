package model

import "time"

// Stable reason codes surfaced with every availability decision so callers
// can localize messages instead of parsing free text.
const (
	ReasonOK                 = "ok"
	ReasonCapacityExceeded   = "capacity_exceeded"
	ReasonConcurrentConflict = "concurrent_conflict"
	ReasonSeriesTooLarge     = "series_too_large"
	ReasonInvalidWindow      = "invalid_window"
	ReasonStoreUnavailable   = "store_unavailable"
)

type AvailabilityRequest struct {
	FacilityID       string    `json:"facility_id" validate:"required,mongodb"`
	StartTime        time.Time `json:"start_time" validate:"required"`
	EndTime          time.Time `json:"end_time" validate:"required"`
	ExcludeBookingID string    `json:"exclude_booking_id,omitempty" validate:"omitempty,mongodb"`
}

// AvailabilityResult answers "if one more booking is added, does the facility
// stay within capacity". CurrentBookings excludes the booking identified by
// ExcludeBookingID and never counts cancelled bookings.
type AvailabilityResult struct {
	Available       bool   `json:"available"`
	CurrentBookings int    `json:"current_bookings"`
	MaxConcurrent   int    `json:"max_concurrent"`
	Reason          string `json:"reason"`
}
