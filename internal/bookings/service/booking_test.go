package service

import (
	"context"
	"testing"
	"time"

	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/internal/bookings/validator"
	"courtbook/pkg/config"
	mongotx "courtbook/pkg/db/mongo"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"courtbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testFacilityID = "64a1f0c2e3b4a5d6c7f8e901"
	testBookingID  = "64a1f0c2e3b4a5d6c7f8e902"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultMaxConcurrent: 1,
		MaxSeriesOccurrences: 366,
		SlotLockTTL:          10 * time.Second,
		SlotConflictRetries:  2,
		SlotConflictBackoff:  time.Millisecond,
		ReadTimeout:          time.Second,
		WriteTimeout:         time.Second,
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.TEXT,
			Service: "bookings-test",
		}),
	}
}

type mockBookingRepo struct {
	createFn           func(ctx context.Context, booking *model.Booking) error
	findByIDFn         func(ctx context.Context, id string) (*model.Booking, error)
	findAllFn          func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	countFn            func(ctx context.Context) (int64, error)
	updateFn           func(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error)
	updateStatusFn     func(ctx context.Context, id string, status string) error
	countOverlappingFn func(ctx context.Context, facilityID string, window model.TimeWindow, excludeBookingID string) (int64, error)
	findOverlappingFn  func(ctx context.Context, facilityID string, window model.TimeWindow, excludeBookingID string, limit int) ([]*model.Booking, error)
	findByFacilityFn   func(ctx context.Context, facilityID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error)
	countByFacilityFn  func(ctx context.Context, facilityID string, startTime, endTime *time.Time) (int64, error)
	findBySeriesFn     func(ctx context.Context, seriesID string) ([]*model.Booking, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFn != nil {
		return m.createFn(ctx, booking)
	}
	booking.ID = testBookingID
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepo) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockBookingRepo) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, booking)
	}
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockBookingRepo) CountOverlapping(ctx context.Context, facilityID string, window model.TimeWindow, excludeBookingID string) (int64, error) {
	if m.countOverlappingFn != nil {
		return m.countOverlappingFn(ctx, facilityID, window, excludeBookingID)
	}
	return 0, nil
}

func (m *mockBookingRepo) FindOverlapping(ctx context.Context, facilityID string, window model.TimeWindow, excludeBookingID string, limit int) ([]*model.Booking, error) {
	if m.findOverlappingFn != nil {
		return m.findOverlappingFn(ctx, facilityID, window, excludeBookingID, limit)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindByFacility(ctx context.Context, facilityID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByFacilityFn != nil {
		return m.findByFacilityFn(ctx, facilityID, startTime, endTime, limit, offset)
	}
	return nil, nil
}

func (m *mockBookingRepo) CountByFacility(ctx context.Context, facilityID string, startTime, endTime *time.Time) (int64, error) {
	if m.countByFacilityFn != nil {
		return m.countByFacilityFn(ctx, facilityID, startTime, endTime)
	}
	return 0, nil
}

func (m *mockBookingRepo) FindBySeries(ctx context.Context, seriesID string) ([]*model.Booking, error) {
	if m.findBySeriesFn != nil {
		return m.findBySeriesFn(ctx, seriesID)
	}
	return nil, nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepo struct {
	createFn func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error)
	deleteFn func(ctx context.Context, lockID string) error
	attempts int
}

func (m *mockLockRepo) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	m.attempts++
	if m.createFn != nil {
		return m.createFn(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepo) Delete(ctx context.Context, lockID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, lockID)
	}
	return nil
}

type mockCapacityResolver struct {
	maxConcurrent int
	err           error
}

func (m *mockCapacityResolver) MaxConcurrent(ctx context.Context, facilityID string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.maxConcurrent, nil
}

type recordedEvents struct {
	created     []*model.Booking
	rescheduled []*model.Booking
	cancelled   []*model.Booking
	series      []*model.SeriesResult
}

func (r *recordedEvents) BookingCreated(_ context.Context, b *model.Booking) {
	r.created = append(r.created, b)
}

func (r *recordedEvents) BookingRescheduled(_ context.Context, b *model.Booking) {
	r.rescheduled = append(r.rescheduled, b)
}

func (r *recordedEvents) BookingCancelled(_ context.Context, b *model.Booking) {
	r.cancelled = append(r.cancelled, b)
}

func (r *recordedEvents) SeriesCreated(_ context.Context, _ string, result *model.SeriesResult) {
	r.series = append(r.series, result)
}

func newTestService(repo *mockBookingRepo, lockRepo *mockLockRepo, capacity int, events *recordedEvents) BookingService {
	cfg := testConfig()
	v := validator.NewBookingValidator(cfg.Log)
	var publisher = events
	if publisher == nil {
		return NewBookingService(repo, lockRepo, v, &mockCapacityResolver{maxConcurrent: capacity}, nil, cfg)
	}
	return NewBookingService(repo, lockRepo, v, &mockCapacityResolver{maxConcurrent: capacity}, publisher, cfg)
}

func validBooking() *model.Booking {
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	return &model.Booking{
		FacilityID: testFacilityID,
		Title:      "Morning practice",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		BookedBy:   map[string]string{"Dana Levi": "+972541234567"},
	}
}

func TestCheckAvailabilityOK(t *testing.T) {
	repo := &mockBookingRepo{
		countOverlappingFn: func(_ context.Context, _ string, _ model.TimeWindow, _ string) (int64, error) {
			return 1, nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, 3, nil)

	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), &model.AvailabilityRequest{
		FacilityID: testFacilityID,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}

	if !result.Available {
		t.Error("expected slot to be available")
	}
	if result.Reason != model.ReasonOK {
		t.Errorf("reason = %q, want %q", result.Reason, model.ReasonOK)
	}
	if result.CurrentBookings != 1 || result.MaxConcurrent != 3 {
		t.Errorf("occupancy = %d/%d, want 1/3", result.CurrentBookings, result.MaxConcurrent)
	}
}

func TestCheckAvailabilityAtCapacity(t *testing.T) {
	repo := &mockBookingRepo{
		countOverlappingFn: func(_ context.Context, _ string, _ model.TimeWindow, _ string) (int64, error) {
			return 2, nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, 2, nil)

	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), &model.AvailabilityRequest{
		FacilityID: testFacilityID,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}

	if result.Available {
		t.Error("expected slot to be unavailable")
	}
	if result.Reason != model.ReasonCapacityExceeded {
		t.Errorf("reason = %q, want %q", result.Reason, model.ReasonCapacityExceeded)
	}
}

func TestCheckAvailabilityInvalidWindow(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, &mockLockRepo{}, 1, nil)

	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	_, err := svc.CheckAvailability(context.Background(), &model.AvailabilityRequest{
		FacilityID: testFacilityID,
		StartTime:  start,
		EndTime:    start, // zero-length window
	})
	if err == nil {
		t.Fatal("CheckAvailability() expected error for invalid window")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeValidation)
	}
	if appErr.Details["reason"] != model.ReasonInvalidWindow {
		t.Errorf("reason = %v, want %q", appErr.Details["reason"], model.ReasonInvalidWindow)
	}
}

func TestCheckAvailabilityExcludesBooking(t *testing.T) {
	var gotExclude string
	repo := &mockBookingRepo{
		countOverlappingFn: func(_ context.Context, _ string, _ model.TimeWindow, excludeBookingID string) (int64, error) {
			gotExclude = excludeBookingID
			return 0, nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, 1, nil)

	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	_, err := svc.CheckAvailability(context.Background(), &model.AvailabilityRequest{
		FacilityID:       testFacilityID,
		StartTime:        start,
		EndTime:          start.Add(time.Hour),
		ExcludeBookingID: testBookingID,
	})
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}

	if gotExclude != testBookingID {
		t.Errorf("excludeBookingID = %q, want %q", gotExclude, testBookingID)
	}
}

func TestCreateSuccess(t *testing.T) {
	var inserted *model.Booking
	repo := &mockBookingRepo{
		createFn: func(_ context.Context, booking *model.Booking) error {
			booking.ID = testBookingID
			inserted = booking
			return nil
		},
	}
	lockRepo := &mockLockRepo{}
	published := &recordedEvents{}
	svc := newTestService(repo, lockRepo, 1, published)

	booking := validBooking()
	if err := svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if inserted == nil {
		t.Fatal("booking was not inserted")
	}
	if inserted.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", inserted.Status, model.StatusPending)
	}
	if lockRepo.attempts != 1 {
		t.Errorf("lock attempts = %d, want 1", lockRepo.attempts)
	}
	if len(published.created) != 1 {
		t.Errorf("published %d created events, want 1", len(published.created))
	}
}

func TestCreateCapacityExceeded(t *testing.T) {
	repo := &mockBookingRepo{
		countOverlappingFn: func(_ context.Context, _ string, _ model.TimeWindow, _ string) (int64, error) {
			return 1, nil
		},
		createFn: func(_ context.Context, _ *model.Booking) error {
			t.Fatal("Create must not insert when capacity is exceeded")
			return nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, 1, nil)

	err := svc.Create(context.Background(), validBooking())
	if err == nil {
		t.Fatal("Create() expected capacity conflict")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeConflict)
	}
	if appErr.Details["reason"] != model.ReasonCapacityExceeded {
		t.Errorf("reason = %v, want %q", appErr.Details["reason"], model.ReasonCapacityExceeded)
	}
}

func TestCreateSlotLockedExhaustsRetries(t *testing.T) {
	lockRepo := &mockLockRepo{
		createFn: func(_ context.Context, _ *model.SlotLock) (*model.SlotLock, error) {
			return nil, bookingserrors.ErrSlotLocked
		},
	}
	svc := newTestService(&mockBookingRepo{}, lockRepo, 1, nil)

	err := svc.Create(context.Background(), validBooking())
	if err == nil {
		t.Fatal("Create() expected conflict after lock retries")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeConflict)
	}
	if appErr.Details["reason"] != model.ReasonConcurrentConflict {
		t.Errorf("reason = %v, want %q", appErr.Details["reason"], model.ReasonConcurrentConflict)
	}

	// Initial attempt plus SlotConflictRetries.
	if lockRepo.attempts != 3 {
		t.Errorf("lock attempts = %d, want 3", lockRepo.attempts)
	}
}

func TestCreateOverlappingWindowsContendForFacilityLock(t *testing.T) {
	held := map[string]bool{}
	lockRepo := &mockLockRepo{
		createFn: func(_ context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
			if held[lock.ID] {
				return nil, bookingserrors.ErrSlotLocked
			}
			held[lock.ID] = true
			return lock, nil
		},
		deleteFn: func(_ context.Context, lockID string) error {
			delete(held, lockID)
			return nil
		},
	}

	var svc BookingService
	var secondErr error
	committed := 0
	raced := false
	repo := &mockBookingRepo{}
	repo.createFn = func(_ context.Context, booking *model.Booking) error {
		// The first writer is mid-transaction and not yet visible to
		// overlap counts. A second request with a shifted start time
		// inside the same hour must still wait on the facility lock.
		if !raced {
			raced = true
			second := validBooking()
			second.StartTime = second.StartTime.Add(30 * time.Minute)
			second.EndTime = second.StartTime.Add(time.Hour)
			secondErr = svc.Create(context.Background(), second)
		}
		booking.ID = testBookingID
		committed++
		return nil
	}
	svc = newTestService(repo, lockRepo, 1, nil)

	if err := svc.Create(context.Background(), validBooking()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if secondErr == nil {
		t.Fatal("overlapping create expected a concurrency conflict")
	}
	appErr := apperrors.AsAppError(secondErr)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeConflict)
	}
	if appErr.Details["reason"] != model.ReasonConcurrentConflict {
		t.Errorf("reason = %v, want %q", appErr.Details["reason"], model.ReasonConcurrentConflict)
	}
	if committed != 1 {
		t.Errorf("committed bookings = %d, want 1", committed)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, &mockLockRepo{}, 1, nil)

	booking := validBooking()
	booking.BookedBy = map[string]string{"Dana Levi": "not-a-phone"}

	err := svc.Create(context.Background(), booking)
	if err == nil {
		t.Fatal("Create() expected validation error")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("code = %q, want %q", appErr.Code, apperrors.CodeValidation)
	}
}

func TestUpdateExcludesSelfFromOverlapCount(t *testing.T) {
	existing := validBooking()
	existing.ID = testBookingID
	existing.Status = model.StatusConfirmed

	var gotExclude string
	repo := &mockBookingRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			b := *existing
			return &b, nil
		},
		countOverlappingFn: func(_ context.Context, _ string, _ model.TimeWindow, excludeBookingID string) (int64, error) {
			gotExclude = excludeBookingID
			return 0, nil
		},
	}
	published := &recordedEvents{}
	svc := newTestService(repo, &mockLockRepo{}, 1, published)

	newStart := existing.StartTime.Add(2 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if gotExclude != testBookingID {
		t.Errorf("excludeBookingID = %q, want %q", gotExclude, testBookingID)
	}
	if len(published.rescheduled) != 1 {
		t.Errorf("published %d rescheduled events, want 1", len(published.rescheduled))
	}
}

func TestUpdateCancelledBookingRejected(t *testing.T) {
	existing := validBooking()
	existing.ID = testBookingID
	existing.Status = model.StatusCancelled

	repo := &mockBookingRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return existing, nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, 1, nil)

	title := "Rename attempt"
	err := svc.Update(context.Background(), testBookingID, &model.BookingUpdate{Title: title})
	if err == nil {
		t.Fatal("Update() expected conflict for cancelled booking")
	}

	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
}

func TestCancelTransitionsStatus(t *testing.T) {
	existing := validBooking()
	existing.ID = testBookingID
	existing.Status = model.StatusConfirmed

	var gotStatus string
	repo := &mockBookingRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			b := *existing
			return &b, nil
		},
		updateStatusFn: func(_ context.Context, _ string, status string) error {
			gotStatus = status
			return nil
		},
	}
	published := &recordedEvents{}
	svc := newTestService(repo, &mockLockRepo{}, 1, published)

	if err := svc.Cancel(context.Background(), testBookingID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	if gotStatus != model.StatusCancelled {
		t.Errorf("status = %q, want %q", gotStatus, model.StatusCancelled)
	}
	if len(published.cancelled) != 1 {
		t.Errorf("published %d cancelled events, want 1", len(published.cancelled))
	}
}

func TestCancelAlreadyCancelledIsNoop(t *testing.T) {
	existing := validBooking()
	existing.ID = testBookingID
	existing.Status = model.StatusCancelled

	repo := &mockBookingRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return existing, nil
		},
		updateStatusFn: func(_ context.Context, _ string, _ string) error {
			t.Fatal("UpdateStatus must not be called for an already-cancelled booking")
			return nil
		},
	}
	svc := newTestService(repo, &mockLockRepo{}, 1, nil)

	if err := svc.Cancel(context.Background(), testBookingID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
}

func TestCancelNotFound(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, &mockLockRepo{}, 1, nil)

	err := svc.Cancel(context.Background(), testBookingID)
	if err == nil {
		t.Fatal("Cancel() expected not found error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeNotFound)
	}
}
