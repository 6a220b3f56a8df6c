package service

import (
	"context"
	"errors"
	"fmt"
	facilitieserrors "courtbook/internal/facilities/errors"
	"courtbook/internal/facilities/repository"
	"courtbook/internal/facilities/validator"
	"courtbook/pkg/config"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/model"
	"courtbook/pkg/sanitizer"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

type FacilityService interface {
	Create(ctx context.Context, facility *model.Facility) error
	GetByID(ctx context.Context, id string) (*model.Facility, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Facility, int64, error)
	Update(ctx context.Context, id string, updates *model.FacilityUpdate) error
	Delete(ctx context.Context, id string) error

	SearchByClub(ctx context.Context, clubID string, labels []string, limit int, offset int64) ([]*model.Facility, int64, error)

	// MaxConcurrent reports how many overlapping bookings the facility admits.
	MaxConcurrent(ctx context.Context, facilityID string) (int, error)
}

type facilityService struct {
	repo      repository.FacilityRepository
	validator *validator.FacilityValidator
	cfg       *config.Config
}

func NewFacilityService(
	repo repository.FacilityRepository,
	validator *validator.FacilityValidator,
	cfg *config.Config,
) FacilityService {
	return &facilityService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *facilityService) Create(ctx context.Context, facility *model.Facility) error {
	s.sanitize(facility)
	s.applyDefaults(facility)

	if err := s.validator.Validate(facility); err != nil {
		s.cfg.Log.Warn("Facility validation failed",
			"name", facility.Name,
			"club_id", facility.ClubID,
			"error", err,
		)
		return apperrors.Validation("Facility validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByClub(sessCtx, facility.ClubID, nil, 0, 0)
		if err != nil {
			return fmt.Errorf("failed to check for duplicates: %w", err)
		}

		for _, other := range existing {
			if sanitizer.NormalizeLabel(other.Name) == sanitizer.NormalizeLabel(facility.Name) {
				return apperrors.Conflict(fmt.Sprintf(
					"Facility with the same name already exists in this club (id: %s)",
					other.ID,
				))
			}
		}

		if err := s.repo.Create(sessCtx, facility); err != nil {
			return fmt.Errorf("failed to create facility: %w", err)
		}

		return nil
	})

	if err != nil {
		s.cfg.Log.Error("Failed to create facility",
			"name", facility.Name,
			"club_id", facility.ClubID,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Facility created successfully",
		"id", facility.ID,
		"name", facility.Name,
		"club_id", facility.ClubID,
		"max_concurrent", facility.CapacityPolicy.MaxConcurrent,
	)

	return nil
}

func (s *facilityService) GetByID(ctx context.Context, id string) (*model.Facility, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Facility ID cannot be empty")
	}

	facility, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Facility", id)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid facility ID format")
		}
		s.cfg.Log.Error("Failed to get facility by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve facility", err)
	}

	return facility, nil
}

func (s *facilityService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Facility, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var facilities []*model.Facility
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count facilities", "error", err)
			errCount = apperrors.Internal("Failed to count facilities", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		facilities, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all facilities",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve facilities", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return facilities, count, nil
}

func (s *facilityService) Update(ctx context.Context, id string, updates *model.FacilityUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Facility ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Facility", id)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid facility ID format")
		}
		return apperrors.Internal("Failed to check facility existence", err)
	}

	s.sanitizeUpdate(updates)
	merged := s.mergeFacilityUpdates(existing, updates)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Facility validation failed",
			"name", merged.Name,
			"id", id,
			"error", err,
		)
		return apperrors.Validation("Facility validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if _, err := s.repo.Update(ctx, id, merged); err != nil {
		s.cfg.Log.Error("Failed to update facility",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to update facility", err)
	}
	s.cfg.Log.Info("Facility updated successfully",
		"id", id,
		"name", merged.Name,
		"max_concurrent", merged.CapacityPolicy.MaxConcurrent,
	)

	return nil
}

func (s *facilityService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Facility ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Facility", id)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid facility ID format")
		}
		s.cfg.Log.Error("Failed to delete facility",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete facility", err)
	}

	s.cfg.Log.Info("Facility deleted successfully", "id", id)

	return nil
}

func (s *facilityService) SearchByClub(ctx context.Context, clubID string, labels []string, limit int, offset int64) ([]*model.Facility, int64, error) {
	if clubID == "" {
		return nil, 0, apperrors.InvalidInput("Club ID cannot be empty")
	}

	clubID = sanitizer.TrimAndNormalize(clubID)
	labels = sanitizer.NormalizeLabels(labels)
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var facilities []*model.Facility
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		count, err = s.repo.CountByClub(ctx, clubID, labels)
		if err != nil {
			s.cfg.Log.Error("Failed to count facilities by club", "club_id", clubID, "error", err)
			errCount = apperrors.Internal("Failed to count facilities", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		facilities, err = s.repo.FindByClub(ctx, clubID, labels, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search facilities by club",
				"club_id", clubID,
				"labels", labels,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search facilities", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return facilities, count, nil
}

func (s *facilityService) MaxConcurrent(ctx context.Context, facilityID string) (int, error) {
	facility, err := s.GetByID(ctx, facilityID)
	if err != nil {
		return 0, err
	}

	if facility.CapacityPolicy.MaxConcurrent < 1 {
		return s.cfg.DefaultMaxConcurrent, nil
	}

	return facility.CapacityPolicy.MaxConcurrent, nil
}

func (s *facilityService) sanitize(facility *model.Facility) {
	facility.ClubID = sanitizer.TrimAndNormalize(facility.ClubID)
	facility.Name = sanitizer.NormalizeName(facility.Name)
	facility.Labels = sanitizer.NormalizeLabels(facility.Labels)
	facility.ContactPhone = sanitizer.NormalizePhone(facility.ContactPhone)
}

func (s *facilityService) sanitizeUpdate(updates *model.FacilityUpdate) {
	if updates.Name != "" {
		updates.Name = sanitizer.NormalizeName(updates.Name)
	}
	if updates.Labels != nil {
		if len(updates.Labels) == 0 {
			s.cfg.Log.Warn("Attempted to update labels with empty array")
		} else {
			updates.Labels = sanitizer.NormalizeLabels(updates.Labels)
		}
	}
	if updates.ContactPhone != nil {
		normalized := sanitizer.NormalizePhone(*updates.ContactPhone)
		updates.ContactPhone = &normalized
	}
}

func (s *facilityService) applyDefaults(facility *model.Facility) {
	if facility.CapacityPolicy.MaxConcurrent < 1 {
		facility.CapacityPolicy = model.CapacityPolicy{MaxConcurrent: s.cfg.DefaultMaxConcurrent}
	}
}

func (s *facilityService) mergeFacilityUpdates(existing *model.Facility, updates *model.FacilityUpdate) *model.Facility {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}

	if updates.Labels != nil {
		merged.Labels = updates.Labels
	}

	if updates.ContactPhone != nil {
		merged.ContactPhone = *updates.ContactPhone
	}

	if updates.MaxConcurrent != nil {
		merged.CapacityPolicy.MaxConcurrent = *updates.MaxConcurrent
	}

	merged.ID = existing.ID
	merged.ClubID = existing.ClubID
	merged.CreatedAt = existing.CreatedAt

	return &merged
}
