package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotLocked means another request holds the advisory lock for the
	// same slot.
	ErrSlotLocked = errors.New("slot is locked by a concurrent request")

	ErrCapacityExceeded = errors.New("facility capacity exceeded for requested window")

	ErrInvalidWindow = errors.New("end time must be after start time")

	ErrSeriesTooLarge = errors.New("recurrence expansion exceeds occurrence limit")
)
