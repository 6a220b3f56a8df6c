package validator

import (
	"testing"
	"time"

	"courtbook/pkg/logger"
	"courtbook/pkg/model"
)

func testValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{
		Level:   "error",
		Format:  logger.TEXT,
		Service: "validator-test",
	}))
}

func baseBooking() *model.Booking {
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	return &model.Booking{
		FacilityID: "64a1f0c2e3b4a5d6c7f8e901",
		Title:      "Morning practice",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Status:     model.StatusPending,
		BookedBy:   map[string]string{"Dana Levi": "+972541234567"},
	}
}

func TestValidateBooking(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		mutate  func(b *model.Booking)
		wantErr bool
	}{
		{
			name:    "valid booking",
			mutate:  func(b *model.Booking) {},
			wantErr: false,
		},
		{
			name:    "missing facility id",
			mutate:  func(b *model.Booking) { b.FacilityID = "" },
			wantErr: true,
		},
		{
			name:    "facility id not an object id",
			mutate:  func(b *model.Booking) { b.FacilityID = "court-1" },
			wantErr: true,
		},
		{
			name:    "title too short",
			mutate:  func(b *model.Booking) { b.Title = "x" },
			wantErr: true,
		},
		{
			name:    "end before start",
			mutate:  func(b *model.Booking) { b.EndTime = b.StartTime.Add(-time.Hour) },
			wantErr: true,
		},
		{
			name:    "end equals start",
			mutate:  func(b *model.Booking) { b.EndTime = b.StartTime },
			wantErr: true,
		},
		{
			name:    "unknown status",
			mutate:  func(b *model.Booking) { b.Status = "tentative" },
			wantErr: true,
		},
		{
			name:    "empty contacts",
			mutate:  func(b *model.Booking) { b.BookedBy = map[string]string{} },
			wantErr: true,
		},
		{
			name:    "contact phone not e164",
			mutate:  func(b *model.Booking) { b.BookedBy = map[string]string{"Dana": "054-123"} },
			wantErr: true,
		},
		{
			name:    "series id not a uuid",
			mutate:  func(b *model.Booking) { b.SeriesID = "series-1" },
			wantErr: true,
		},
		{
			name:    "series id valid uuid",
			mutate:  func(b *model.Booking) { b.SeriesID = "9f4b2d36-7c1a-4f6e-9a3b-2d1c5e8f7a60" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := baseBooking()
			tt.mutate(b)
			err := v.Validate(b)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdateWindow(t *testing.T) {
	v := testValidator()

	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	err := v.ValidateUpdate(&model.BookingUpdate{
		StartTime: &start,
		EndTime:   &end,
	})
	if err == nil {
		t.Fatal("ValidateUpdate() expected error for inverted window")
	}
}

func TestValidateRecurrence(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name    string
		mutate  func(r *model.BookingRequest)
		wantErr bool
	}{
		{
			name:    "valid bare date",
			mutate:  func(r *model.BookingRequest) {},
			wantErr: false,
		},
		{
			name:    "valid rfc3339",
			mutate:  func(r *model.BookingRequest) { r.RecurringUntil = "2026-10-01T00:00:00Z" },
			wantErr: false,
		},
		{
			name:    "missing pattern",
			mutate:  func(r *model.BookingRequest) { r.RecurringPattern = "" },
			wantErr: true,
		},
		{
			name:    "missing until",
			mutate:  func(r *model.BookingRequest) { r.RecurringUntil = "" },
			wantErr: true,
		},
		{
			name:    "garbage until",
			mutate:  func(r *model.BookingRequest) { r.RecurringUntil = "next tuesday" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &model.BookingRequest{
				Recurring:        true,
				RecurringPattern: model.PatternWeekly,
				RecurringUntil:   "2026-10-01",
			}
			tt.mutate(req)
			rule, err := v.ValidateRecurrence(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRecurrence() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if !tt.wantErr && rule == nil {
				t.Fatal("ValidateRecurrence() returned nil rule without error")
			}
		})
	}
}

func TestValidateRecurrenceNotRecurring(t *testing.T) {
	v := testValidator()

	rule, err := v.ValidateRecurrence(&model.BookingRequest{Recurring: false})
	if err == nil {
		t.Fatal("ValidateRecurrence() expected error for non-recurring request")
	}
	if rule != nil {
		t.Errorf("rule = %v, want nil alongside the error", rule)
	}
}
