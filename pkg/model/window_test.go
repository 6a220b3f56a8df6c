package model

import (
	"errors"
	"testing"
	"time"
)

func mustWindow(t *testing.T, start, end time.Time) TimeWindow {
	t.Helper()
	w, err := NewTimeWindow(start, end)
	if err != nil {
		t.Fatalf("NewTimeWindow(%v, %v): %v", start, end, err)
	}
	return w
}

func TestNewTimeWindow_RejectsInvalid(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"zero length", at, at},
		{"negative length", at, at.Add(-time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeWindow(tt.start, tt.end)
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

func TestNewTimeWindow_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	start := time.Date(2024, 6, 1, 13, 0, 0, 0, loc)
	end := time.Date(2024, 6, 1, 14, 0, 0, 0, loc)

	w := mustWindow(t, start, end)
	if w.Start.Location() != time.UTC || w.End.Location() != time.UTC {
		t.Errorf("expected UTC bounds, got %v and %v", w.Start.Location(), w.End.Location())
	}
	if w.Start.Hour() != 10 {
		t.Errorf("expected start hour 10 UTC, got %d", w.Start.Hour())
	}
}

func TestOverlaps(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	tests := []struct {
		name string
		a    TimeWindow
		b    TimeWindow
		want bool
	}{
		{"identical", mustWindow(t, at(10, 0), at(11, 0)), mustWindow(t, at(10, 0), at(11, 0)), true},
		{"partial overlap", mustWindow(t, at(10, 0), at(11, 0)), mustWindow(t, at(10, 30), at(11, 30)), true},
		{"containment", mustWindow(t, at(9, 0), at(12, 0)), mustWindow(t, at(10, 0), at(11, 0)), true},
		{"back to back", mustWindow(t, at(10, 0), at(11, 0)), mustWindow(t, at(11, 0), at(12, 0)), false},
		{"disjoint", mustWindow(t, at(8, 0), at(9, 0)), mustWindow(t, at(10, 0), at(11, 0)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, day.Add(10*time.Hour), day.Add(11*time.Hour))

	if !w.Contains(day.Add(10 * time.Hour)) {
		t.Error("window should contain its start")
	}
	if w.Contains(day.Add(11 * time.Hour)) {
		t.Error("half-open window must not contain its end")
	}
	if !w.Contains(day.Add(10*time.Hour + 30*time.Minute)) {
		t.Error("window should contain an interior point")
	}
	if w.Contains(day.Add(9 * time.Hour)) {
		t.Error("window should not contain a point before start")
	}
}

func TestDuration(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, day.Add(10*time.Hour), day.Add(11*time.Hour+30*time.Minute))

	if got := w.Duration(); got != 90*time.Minute {
		t.Errorf("Duration() = %v, want 90m", got)
	}
}
