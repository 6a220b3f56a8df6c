package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	facilitieserrors "courtbook/internal/facilities/errors"
	"courtbook/internal/facilities/validator"
	"courtbook/pkg/config"
	mongotx "courtbook/pkg/db/mongo"
	apperrors "courtbook/pkg/errors"
	"courtbook/pkg/logger"
	"courtbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const testFacilityID = "64a1f0c2e3b4a5d6c7f8e901"

type mockFacilityRepo struct {
	createFn      func(ctx context.Context, facility *model.Facility) error
	findByIDFn    func(ctx context.Context, id string) (*model.Facility, error)
	findAllFn     func(ctx context.Context, limit int, offset int64) ([]*model.Facility, error)
	updateFn      func(ctx context.Context, id string, facility *model.Facility) (*mongo.UpdateResult, error)
	deleteFn      func(ctx context.Context, id string) error
	findByClubFn  func(ctx context.Context, clubID string, labels []string, limit int, offset int64) ([]*model.Facility, error)
	countByClubFn func(ctx context.Context, clubID string, labels []string) (int64, error)
	countFn       func(ctx context.Context) (int64, error)
}

func (m *mockFacilityRepo) Create(ctx context.Context, facility *model.Facility) error {
	if m.createFn != nil {
		return m.createFn(ctx, facility)
	}
	facility.ID = testFacilityID
	return nil
}

func (m *mockFacilityRepo) FindByID(ctx context.Context, id string) (*model.Facility, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", facilitieserrors.ErrNotFound, id)
}

func (m *mockFacilityRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Facility, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockFacilityRepo) Update(ctx context.Context, id string, facility *model.Facility) (*mongo.UpdateResult, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, facility)
	}
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *mockFacilityRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockFacilityRepo) FindByClub(ctx context.Context, clubID string, labels []string, limit int, offset int64) ([]*model.Facility, error) {
	if m.findByClubFn != nil {
		return m.findByClubFn(ctx, clubID, labels, limit, offset)
	}
	return nil, nil
}

func (m *mockFacilityRepo) CountByClub(ctx context.Context, clubID string, labels []string) (int64, error) {
	if m.countByClubFn != nil {
		return m.countByClubFn(ctx, clubID, labels)
	}
	return 0, nil
}

func (m *mockFacilityRepo) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockFacilityRepo) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func testConfig() *config.Config {
	return &config.Config{
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		DefaultMaxConcurrent: 1,
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.TEXT,
			Service: "facilities-test",
		}),
	}
}

func newTestService(repo *mockFacilityRepo) FacilityService {
	cfg := testConfig()
	return NewFacilityService(repo, validator.NewFacilityValidator(cfg.Log), cfg)
}

func validFacility() *model.Facility {
	return &model.Facility{
		ClubID: "north-tennis-club",
		Name:   "Center Court",
		Labels: []string{"Tennis", "Outdoor"},
	}
}

func TestCreateAppliesDefaultCapacity(t *testing.T) {
	repo := &mockFacilityRepo{}
	svc := newTestService(repo)

	facility := validFacility()
	if err := svc.Create(context.Background(), facility); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if facility.CapacityPolicy.MaxConcurrent != 1 {
		t.Errorf("MaxConcurrent = %d, want default 1", facility.CapacityPolicy.MaxConcurrent)
	}
	if facility.ID == "" {
		t.Error("ID must be set after create")
	}
}

func TestCreateKeepsExplicitCapacity(t *testing.T) {
	svc := newTestService(&mockFacilityRepo{})

	facility := validFacility()
	facility.CapacityPolicy = model.CapacityPolicy{MaxConcurrent: 4}
	if err := svc.Create(context.Background(), facility); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if facility.CapacityPolicy.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", facility.CapacityPolicy.MaxConcurrent)
	}
}

func TestCreateDuplicateNameRejected(t *testing.T) {
	repo := &mockFacilityRepo{
		findByClubFn: func(_ context.Context, _ string, _ []string, _ int, _ int64) ([]*model.Facility, error) {
			return []*model.Facility{{ID: testFacilityID, Name: "center court"}}, nil
		},
	}
	svc := newTestService(repo)

	err := svc.Create(context.Background(), validFacility())
	if err == nil {
		t.Fatal("Create() expected conflict for duplicate name")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeConflict)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	svc := newTestService(&mockFacilityRepo{})

	facility := validFacility()
	facility.Name = "x"

	err := svc.Create(context.Background(), facility)
	if err == nil {
		t.Fatal("Create() expected validation error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeValidation)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc := newTestService(&mockFacilityRepo{})

	_, err := svc.GetByID(context.Background(), testFacilityID)
	if err == nil {
		t.Fatal("GetByID() expected not found error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeNotFound)
	}
}

func TestUpdateMergesCapacity(t *testing.T) {
	var updated *model.Facility
	repo := &mockFacilityRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Facility, error) {
			f := validFacility()
			f.ID = id
			f.CapacityPolicy = model.CapacityPolicy{MaxConcurrent: 1}
			f.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			return f, nil
		},
		updateFn: func(_ context.Context, _ string, facility *model.Facility) (*mongo.UpdateResult, error) {
			updated = facility
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		},
	}
	svc := newTestService(repo)

	newMax := 3
	err := svc.Update(context.Background(), testFacilityID, &model.FacilityUpdate{MaxConcurrent: &newMax})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated == nil {
		t.Fatal("repository Update was not called")
	}
	if updated.CapacityPolicy.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", updated.CapacityPolicy.MaxConcurrent)
	}
	if updated.Name != "Center Court" {
		t.Errorf("Name = %q, fields absent from the update must be preserved", updated.Name)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(&mockFacilityRepo{})

	err := svc.Update(context.Background(), testFacilityID, &model.FacilityUpdate{Name: "New Name"})
	if err == nil {
		t.Fatal("Update() expected not found error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeNotFound)
	}
}

func TestMaxConcurrentFromPolicy(t *testing.T) {
	repo := &mockFacilityRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Facility, error) {
			f := validFacility()
			f.ID = id
			f.CapacityPolicy = model.CapacityPolicy{MaxConcurrent: 6}
			return f, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.MaxConcurrent(context.Background(), testFacilityID)
	if err != nil {
		t.Fatalf("MaxConcurrent() error = %v", err)
	}
	if got != 6 {
		t.Errorf("MaxConcurrent = %d, want 6", got)
	}
}

func TestMaxConcurrentFallsBackToDefault(t *testing.T) {
	repo := &mockFacilityRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Facility, error) {
			f := validFacility()
			f.ID = id
			return f, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.MaxConcurrent(context.Background(), testFacilityID)
	if err != nil {
		t.Fatalf("MaxConcurrent() error = %v", err)
	}
	if got != 1 {
		t.Errorf("MaxConcurrent = %d, want default 1", got)
	}
}

func TestDeleteNotFound(t *testing.T) {
	repo := &mockFacilityRepo{
		deleteFn: func(_ context.Context, id string) error {
			return fmt.Errorf("%w: %s", facilitieserrors.ErrNotFound, id)
		},
	}
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), testFacilityID)
	if err == nil {
		t.Fatal("Delete() expected not found error")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("code = %q, want %q", apperrors.AsAppError(err).Code, apperrors.CodeNotFound)
	}
}
