package model

import (
	"errors"
	"time"
)

// ErrInvalidWindow is returned when a window's start is not strictly before its end.
var ErrInvalidWindow = errors.New("window start must be before end")

// TimeWindow is a half-open interval [Start, End) in UTC.
// Back-to-back windows (a.End == b.Start) do not overlap.
type TimeWindow struct {
	Start time.Time `json:"start_time" bson:"start_time"`
	End   time.Time `json:"end_time" bson:"end_time"`
}

// NewTimeWindow builds a validated window, normalizing both bounds to UTC.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if !start.Before(end) {
		return TimeWindow{}, ErrInvalidWindow
	}
	return TimeWindow{Start: start.UTC(), End: end.UTC()}, nil
}

func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w TimeWindow) Contains(point time.Time) bool {
	return !point.Before(w.Start) && point.Before(w.End)
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
