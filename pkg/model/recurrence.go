package model

import "time"

const (
	PatternDaily   = "daily"
	PatternWeekly  = "weekly"
	PatternMonthly = "monthly"
)

// RecurrenceRule describes how a series repeats, anchored at the first
// occurrence's window. Until is an inclusive calendar date: an occurrence
// starting on the Until day is still generated.
type RecurrenceRule struct {
	Pattern string    `json:"pattern" validate:"required,oneof=daily weekly monthly"`
	Until   time.Time `json:"until" validate:"required"`
}

// SkippedOccurrence records one occurrence of a series that could not be
// booked, with the stable reason code from the availability check.
type SkippedOccurrence struct {
	Window TimeWindow `json:"window"`
	Reason string     `json:"reason"`
}

// SeriesResult reports a best-effort series creation: occurrences that passed
// the capacity check were persisted, the rest are listed as skipped.
type SeriesResult struct {
	SeriesID     string              `json:"series_id"`
	Created      []*Booking          `json:"created"`
	Skipped      []SkippedOccurrence `json:"skipped"`
	CreatedCount int                 `json:"created_count"`
}
