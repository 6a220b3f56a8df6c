package recurrence

import (
	"errors"
	"testing"
	"time"

	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/pkg/model"
)

func window(t *testing.T, start, end string) model.TimeWindow {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		t.Fatalf("bad start %q: %v", start, err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		t.Fatalf("bad end %q: %v", end, err)
	}
	return model.TimeWindow{Start: s.UTC(), End: e.UTC()}
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return d
}

func TestExpandDaily(t *testing.T) {
	first := window(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternDaily,
		Until:   date(t, "2026-03-05T00:00:00Z"),
	}

	windows, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	if len(windows) != 4 {
		t.Fatalf("Expand() returned %d windows, want 4", len(windows))
	}

	if !windows[0].Start.Equal(first.Start) {
		t.Errorf("first occurrence starts at %s, want %s", windows[0].Start, first.Start)
	}

	last := windows[3]
	wantLast := window(t, "2026-03-05T09:00:00Z", "2026-03-05T10:00:00Z")
	if !last.Start.Equal(wantLast.Start) || !last.End.Equal(wantLast.End) {
		t.Errorf("last occurrence = %s-%s, want %s-%s", last.Start, last.End, wantLast.Start, wantLast.End)
	}
}

func TestExpandWeeklyPreservesDuration(t *testing.T) {
	first := window(t, "2026-03-02T18:30:00Z", "2026-03-02T20:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternWeekly,
		Until:   date(t, "2026-03-23T00:00:00Z"),
	}

	windows, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	if len(windows) != 4 {
		t.Fatalf("Expand() returned %d windows, want 4", len(windows))
	}

	for i, w := range windows {
		if w.Duration() != 90*time.Minute {
			t.Errorf("occurrence %d duration = %s, want 90m", i, w.Duration())
		}
		if w.Start.Weekday() != time.Monday {
			t.Errorf("occurrence %d falls on %s, want Monday", i, w.Start.Weekday())
		}
	}
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	first := window(t, "2026-01-31T10:00:00Z", "2026-01-31T11:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternMonthly,
		Until:   date(t, "2026-04-30T00:00:00Z"),
	}

	windows, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	wantStarts := []string{
		"2026-01-31T10:00:00Z",
		"2026-02-28T10:00:00Z", // 2026 is not a leap year
		"2026-03-31T10:00:00Z",
		"2026-04-30T10:00:00Z",
	}

	if len(windows) != len(wantStarts) {
		t.Fatalf("Expand() returned %d windows, want %d", len(windows), len(wantStarts))
	}

	for i, want := range wantStarts {
		if got := windows[i].Start.Format(time.RFC3339); got != want {
			t.Errorf("occurrence %d starts at %s, want %s", i, got, want)
		}
	}
}

func TestExpandMonthlyLeapYear(t *testing.T) {
	first := window(t, "2028-01-31T10:00:00Z", "2028-01-31T11:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternMonthly,
		Until:   date(t, "2028-02-29T00:00:00Z"),
	}

	windows, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	if len(windows) != 2 {
		t.Fatalf("Expand() returned %d windows, want 2", len(windows))
	}

	if got := windows[1].Start.Format(time.RFC3339); got != "2028-02-29T10:00:00Z" {
		t.Errorf("February occurrence starts at %s, want 2028-02-29T10:00:00Z", got)
	}
}

func TestExpandUntilInclusive(t *testing.T) {
	first := window(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternWeekly,
		Until:   date(t, "2026-03-09T00:00:00Z"),
	}

	windows, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	// The occurrence starting on the until date itself must be included.
	if len(windows) != 2 {
		t.Fatalf("Expand() returned %d windows, want 2", len(windows))
	}
}

func TestExpandSeriesTooLarge(t *testing.T) {
	first := window(t, "2026-01-01T09:00:00Z", "2026-01-01T10:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternDaily,
		Until:   date(t, "2027-06-01T00:00:00Z"),
	}

	_, err := Expand(first, rule, 366)
	if !errors.Is(err, bookingserrors.ErrSeriesTooLarge) {
		t.Fatalf("Expand() error = %v, want ErrSeriesTooLarge", err)
	}
}

func TestExpandUnknownPattern(t *testing.T) {
	first := window(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: "fortnightly",
		Until:   date(t, "2026-04-01T00:00:00Z"),
	}

	if _, err := Expand(first, rule, 366); err == nil {
		t.Fatal("Expand() expected error for unknown pattern")
	}
}

func TestExpandUntilBeforeStart(t *testing.T) {
	first := window(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternDaily,
		Until:   date(t, "2026-02-01T00:00:00Z"),
	}

	if _, err := Expand(first, rule, 366); err == nil {
		t.Fatal("Expand() expected error for until before start")
	}
}

func TestExpandDeterministic(t *testing.T) {
	first := window(t, "2026-01-31T10:00:00Z", "2026-01-31T11:30:00Z")
	rule := model.RecurrenceRule{
		Pattern: model.PatternMonthly,
		Until:   date(t, "2026-12-31T00:00:00Z"),
	}

	a, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	b, err := Expand(first, rule, 366)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("expansions differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			t.Errorf("occurrence %d differs between runs", i)
		}
	}
}
