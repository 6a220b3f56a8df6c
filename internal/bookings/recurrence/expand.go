package recurrence

import (
	"fmt"
	"time"

	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/pkg/model"

	"github.com/teambition/rrule-go"
)

// Expand materializes the occurrence windows of a recurring booking.
//
// The first window anchors the series. Daily and weekly patterns step by
// calendar day and week. Monthly patterns keep the anchor's day-of-month;
// months too short for it clamp to their last day, so a series anchored on
// Jan 31 lands on Feb 28 (or 29) and Mar 31. Each occurrence keeps the
// anchor's duration.
//
// Occurrences starting on the until date are included. Expansion is
// deterministic for identical inputs. When the series would exceed
// maxOccurrences, ErrSeriesTooLarge is returned and nothing is expanded.
func Expand(first model.TimeWindow, rule model.RecurrenceRule, maxOccurrences int) ([]model.TimeWindow, error) {
	opt := rrule.ROption{
		Dtstart: first.Start,
	}

	switch rule.Pattern {
	case model.PatternDaily:
		opt.Freq = rrule.DAILY
	case model.PatternWeekly:
		opt.Freq = rrule.WEEKLY
	case model.PatternMonthly:
		opt.Freq = rrule.MONTHLY
		if day := first.Start.Day(); day > 28 {
			// Candidate days from 28 up to the anchor day; the highest
			// one that exists in a given month wins, which clamps short
			// months to their last day.
			days := make([]int, 0, day-27)
			for d := 28; d <= day; d++ {
				days = append(days, d)
			}
			opt.Bymonthday = days
			opt.Bysetpos = []int{-1}
		}
	default:
		return nil, fmt.Errorf("unsupported recurrence pattern: %q", rule.Pattern)
	}

	until := endOfDay(rule.Until)
	if until.Before(first.Start) {
		return nil, fmt.Errorf("recurrence until (%s) precedes series start (%s)",
			rule.Until.Format(time.RFC3339), first.Start.Format(time.RFC3339))
	}
	opt.Until = until

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	duration := first.Duration()
	windows := make([]model.TimeWindow, 0, 8)

	next := r.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if len(windows) >= maxOccurrences {
			return nil, bookingserrors.ErrSeriesTooLarge
		}
		windows = append(windows, model.TimeWindow{
			Start: start.UTC(),
			End:   start.Add(duration).UTC(),
		})
	}

	return windows, nil
}

// endOfDay pins the inclusive until boundary to the last instant of its
// UTC calendar day, so a bare date admits occurrences starting any time
// that day.
func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}
