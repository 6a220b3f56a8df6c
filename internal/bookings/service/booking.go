package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "courtbook/internal/bookings/errors"
	"courtbook/internal/bookings/events"
	"courtbook/internal/bookings/recurrence"
	"courtbook/internal/bookings/repository"
	"courtbook/internal/bookings/validator"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/model"
	"courtbook/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// CapacityResolver reports the max concurrent bookings a facility allows.
type CapacityResolver interface {
	MaxConcurrent(ctx context.Context, facilityID string) (int, error)
}

type BookingService interface {
	CheckAvailability(ctx context.Context, req *model.AvailabilityRequest) (*model.AvailabilityResult, error)
	Create(ctx context.Context, booking *model.Booking) error
	CreateSeries(ctx context.Context, req *model.BookingRequest) (*model.SeriesResult, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) error
	Cancel(ctx context.Context, id string) error
	SearchByFacility(ctx context.Context, facilityID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	lockRepo   repository.SlotLockRepository
	validator  *validator.BookingValidator
	capacities CapacityResolver
	publisher  events.Publisher
	cfg        *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.BookingValidator,
	capacities CapacityResolver,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &bookingService{
		repo:       repo,
		lockRepo:   lockRepo,
		validator:  validator,
		capacities: capacities,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// CheckAvailability answers whether one more booking fits the facility in
// the requested window. It is read-only and holds no reservation: the
// answer can go stale the moment it is returned.
func (s *bookingService) CheckAvailability(ctx context.Context, req *model.AvailabilityRequest) (*model.AvailabilityResult, error) {
	window, err := model.NewTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, apperrors.Validation("Invalid availability window", map[string]any{
			"reason": model.ReasonInvalidWindow,
			"error":  err.Error(),
		})
	}

	maxConcurrent, err := s.maxConcurrent(ctx, req.FacilityID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountOverlapping(ctx, req.FacilityID, window, req.ExcludeBookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid exclude_booking_id format")
		}
		s.cfg.Log.Error("Failed to count overlapping bookings",
			"facility_id", req.FacilityID,
			"error", err,
		)
		return nil, apperrors.Unavailable("bookings store", err).WithDetails(map[string]any{
			"reason": model.ReasonStoreUnavailable,
		})
	}

	result := &model.AvailabilityResult{
		CurrentBookings: int(count),
		MaxConcurrent:   maxConcurrent,
	}
	if count < int64(maxConcurrent) {
		result.Available = true
		result.Reason = model.ReasonOK
	} else {
		result.Available = false
		result.Reason = model.ReasonCapacityExceeded
	}

	return result, nil
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.applyDefaults(booking)
	s.sanitize(booking)
	if err := s.validate(booking); err != nil {
		return err
	}

	window, err := booking.Window()
	if err != nil {
		return apperrors.Validation("Invalid booking window", map[string]any{
			"reason": model.ReasonInvalidWindow,
			"error":  err.Error(),
		})
	}

	maxConcurrent, err := s.maxConcurrent(ctx, booking.FacilityID)
	if err != nil {
		return err
	}

	if err := s.createOccurrence(ctx, booking, window, maxConcurrent); err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"facility_id", booking.FacilityID,
			"start_time", booking.StartTime,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"facility_id", booking.FacilityID,
		"start_time", booking.StartTime,
	)
	s.publisher.BookingCreated(ctx, booking)
	return nil
}

// createOccurrence performs the atomic check-and-insert for a single window:
// advisory facility lock (with bounded retry), then a transaction that
// re-counts overlaps and inserts only when capacity still holds.
func (s *bookingService) createOccurrence(ctx context.Context, booking *model.Booking, window model.TimeWindow, maxConcurrent int) error {
	lockID, err := s.acquireSlotLock(ctx, booking.FacilityID)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		count, err := s.repo.CountOverlapping(sessCtx, booking.FacilityID, window, booking.ID)
		if err != nil {
			return apperrors.Internal("Failed to check existing bookings", err)
		}
		if count >= int64(maxConcurrent) {
			return apperrors.Conflict(fmt.Sprintf(
				"Facility is fully booked between %s and %s",
				window.Start.Format(time.RFC3339),
				window.End.Format(time.RFC3339),
			)).WithDetails(map[string]any{
				"reason":           model.ReasonCapacityExceeded,
				"current_bookings": count,
				"max_concurrent":   maxConcurrent,
			})
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
}

// CreateSeries expands a recurring request and books each occurrence
// independently. Occurrences that lose to capacity or a concurrent writer
// are skipped with a reason; the rest are created and share a series ID.
// A store failure aborts the remainder of the series, keeping whatever
// occurrences were already persisted.
func (s *bookingService) CreateSeries(ctx context.Context, req *model.BookingRequest) (*model.SeriesResult, error) {
	rule, err := s.validator.ValidateRecurrence(req)
	if err != nil {
		s.cfg.Log.Warn("Recurrence validation failed", "error", err)
		return nil, apperrors.Validation("Invalid recurrence input", map[string]any{"error": err.Error()})
	}

	base := req.Booking
	s.applyDefaults(&base)
	s.sanitize(&base)
	if err := s.validate(&base); err != nil {
		return nil, err
	}

	firstWindow, err := base.Window()
	if err != nil {
		return nil, apperrors.Validation("Invalid booking window", map[string]any{
			"reason": model.ReasonInvalidWindow,
			"error":  err.Error(),
		})
	}

	windows, err := recurrence.Expand(firstWindow, *rule, s.cfg.MaxSeriesOccurrences)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrSeriesTooLarge) {
			return nil, apperrors.Validation("Recurrence series too large", map[string]any{
				"reason":          model.ReasonSeriesTooLarge,
				"max_occurrences": s.cfg.MaxSeriesOccurrences,
			})
		}
		return nil, apperrors.Validation("Invalid recurrence input", map[string]any{"error": err.Error()})
	}

	maxConcurrent, err := s.maxConcurrent(ctx, base.FacilityID)
	if err != nil {
		return nil, err
	}

	result := &model.SeriesResult{
		SeriesID: uuid.New().String(),
		Created:  make([]*model.Booking, 0, len(windows)),
		Skipped:  make([]model.SkippedOccurrence, 0),
	}

	for _, window := range windows {
		occurrence := base
		occurrence.ID = ""
		occurrence.StartTime = window.Start
		occurrence.EndTime = window.End
		occurrence.SeriesID = result.SeriesID

		if err := s.createOccurrence(ctx, &occurrence, window, maxConcurrent); err != nil {
			appErr := apperrors.AsAppError(err)
			if appErr.Code != apperrors.CodeConflict {
				s.cfg.Log.Error("Series creation aborted",
					"series_id", result.SeriesID,
					"start_time", window.Start,
					"created", len(result.Created),
					"error", err,
				)
				if appErr.Code == apperrors.CodeInternal {
					return nil, apperrors.Unavailable("bookings store", err).WithDetails(map[string]any{
						"reason": model.ReasonStoreUnavailable,
					})
				}
				return nil, err
			}

			reason := skipReason(appErr)
			s.cfg.Log.Warn("Series occurrence skipped",
				"series_id", result.SeriesID,
				"start_time", window.Start,
				"reason", reason,
			)
			result.Skipped = append(result.Skipped, model.SkippedOccurrence{
				Window: window,
				Reason: reason,
			})
			continue
		}

		result.Created = append(result.Created, &occurrence)
	}
	result.CreatedCount = len(result.Created)

	s.cfg.Log.Info("Booking series created",
		"series_id", result.SeriesID,
		"facility_id", base.FacilityID,
		"created", result.CreatedCount,
		"skipped", len(result.Skipped),
	)
	s.publisher.SeriesCreated(ctx, base.FacilityID, result)
	for _, booking := range result.Created {
		s.publisher.BookingCreated(ctx, booking)
	}

	return result, nil
}

// skipReason maps a conflict on one occurrence to its stable reason code.
func skipReason(appErr *apperrors.AppError) string {
	if reason, ok := appErr.Details["reason"].(string); ok {
		return reason
	}
	return model.ReasonConcurrentConflict
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Update reschedules or retitles a booking. When the window moves, the new
// slot goes through the same lock-and-recount path as creation, with the
// booking itself excluded from the overlap count.
func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid booking ID format")
		}
		return apperrors.Internal("Failed to check booking existence", err)
	}

	if existing.Status == model.StatusCancelled {
		return apperrors.Conflict("Cancelled bookings cannot be updated")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeBookingUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	window, err := merged.Window()
	if err != nil {
		return apperrors.Validation("Invalid booking window", map[string]any{
			"reason": model.ReasonInvalidWindow,
			"error":  err.Error(),
		})
	}

	rescheduled := !merged.StartTime.Equal(existing.StartTime) || !merged.EndTime.Equal(existing.EndTime)

	if rescheduled {
		maxConcurrent, err := s.maxConcurrent(ctx, merged.FacilityID)
		if err != nil {
			return err
		}

		lockID, err := s.acquireSlotLock(ctx, merged.FacilityID)
		if err != nil {
			return err
		}
		defer func() {
			if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
				s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
			}
		}()

		err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			count, err := s.repo.CountOverlapping(sessCtx, merged.FacilityID, window, id)
			if err != nil {
				return apperrors.Internal("Failed to check existing bookings", err)
			}
			if count >= int64(maxConcurrent) {
				return apperrors.Conflict(fmt.Sprintf(
					"Facility is fully booked between %s and %s",
					window.Start.Format(time.RFC3339),
					window.End.Format(time.RFC3339),
				)).WithDetails(map[string]any{
					"reason":           model.ReasonCapacityExceeded,
					"current_bookings": count,
					"max_concurrent":   maxConcurrent,
				})
			}
			if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
				return apperrors.Internal("Failed to update booking", err)
			}
			return nil
		})
		if err != nil {
			s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
			return err
		}
	} else {
		if _, err := s.repo.Update(ctx, id, merged); err != nil {
			s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
			return apperrors.Internal("Failed to update booking", err)
		}
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id, "rescheduled", rescheduled)
	if rescheduled {
		merged.ID = id
		s.publisher.BookingRescheduled(ctx, merged)
	}
	return nil
}

// Cancel transitions the booking to cancelled. The record is kept; it simply
// stops counting against capacity. Cancelling twice is a no-op.
func (s *bookingService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid booking ID format")
		}
		return apperrors.Internal("Failed to retrieve booking", err)
	}

	if booking.Status == model.StatusCancelled {
		s.cfg.Log.Debug("Booking already cancelled", "id", id)
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, id, model.StatusCancelled); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id)
	booking.Status = model.StatusCancelled
	s.publisher.BookingCancelled(ctx, booking)
	return nil
}

func (s *bookingService) SearchByFacility(ctx context.Context, facilityID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, int64, error) {
	if facilityID == "" {
		return nil, 0, apperrors.InvalidInput("FacilityID is required")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByFacility(ctx, facilityID, startTime, endTime)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings by search",
				"facility_id", facilityID,
				"error", err,
			)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByFacility(ctx, facilityID, startTime, endTime, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search bookings",
				"facility_id", facilityID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Booking search completed",
		"facility_id", facilityID,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

// --- Helpers ---

func (s *bookingService) sanitize(b *model.Booking) {
	b.Title = sanitizer.NormalizeTitle(b.Title)
	b.BookedBy = sanitizer.NormalizeContacts(b.BookedBy)
}

func (s *bookingService) applyDefaults(b *model.Booking) {
	if b.Status == "" {
		b.Status = model.StatusPending
	}
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.Title != "" {
		merged.Title = updates.Title
	}
	if updates.StartTime != nil {
		merged.StartTime = *updates.StartTime
	}
	if updates.EndTime != nil {
		merged.EndTime = *updates.EndTime
	}
	if updates.BookedBy != nil {
		merged.BookedBy = *updates.BookedBy
	}

	return &merged
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) maxConcurrent(ctx context.Context, facilityID string) (int, error) {
	maxConcurrent, err := s.capacities.MaxConcurrent(ctx, facilityID)
	if err != nil {
		return 0, err
	}
	if maxConcurrent < 1 {
		maxConcurrent = s.cfg.DefaultMaxConcurrent
	}
	return maxConcurrent, nil
}

// acquireSlotLock takes the advisory write lock for a facility, retrying a
// bounded number of times before giving up with a concurrency conflict. The
// lock is keyed by facility alone: overlapping windows with different start
// times must still contend for the same lock, otherwise two writers could
// each pass the overlap recount inside their own snapshot.
func (s *bookingService) acquireSlotLock(ctx context.Context, facilityID string) (string, error) {
	lockID := fmt.Sprintf("slot_lock_%s", facilityID)

	for attempt := 0; ; attempt++ {
		lock := &model.SlotLock{
			ID:        lockID,
			ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
		}

		_, err := s.lockRepo.Create(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !errors.Is(err, bookingserrors.ErrSlotLocked) {
			return "", apperrors.Internal("Failed to acquire slot lock", err)
		}
		if attempt >= s.cfg.SlotConflictRetries {
			return "", apperrors.Conflict(
				"This time slot is currently being booked by another request. Please try again.",
			).WithDetails(map[string]any{
				"reason": model.ReasonConcurrentConflict,
			})
		}

		select {
		case <-ctx.Done():
			return "", apperrors.Timeout("Booking request cancelled while waiting for slot lock")
		case <-time.After(s.cfg.SlotConflictBackoff):
		}
	}
}

func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
