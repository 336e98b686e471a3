package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/devportal/engine/internal/lifecycle"
	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/repository"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

// mockApplicationRepository overrides the two methods the service uses; any
// other call panics on the nil embedded interface.
type mockApplicationRepository struct {
	repository.ApplicationRepository
	mock.Mock
}

func (m *mockApplicationRepository) GetByID(ctx context.Context, id any, dest *models.Application) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Application)
	}
	return args.Error(0)
}

func (m *mockApplicationRepository) UpdateLifecycle(ctx context.Context, appID uuid.UUID, status models.ApplicationStatus, startedAt, endsAt *time.Time) error {
	args := m.Called(ctx, appID, status, startedAt, endsAt)
	return args.Error(0)
}

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newService(repo *mockApplicationRepository) ApplicationService {
	return NewApplicationService(repo, lifecycle.Calculator{Now: func() time.Time { return now }})
}

func app(status models.ApplicationStatus, envs ...string) *models.Application {
	a := &models.Application{ID: uuid.New(), Name: "checkout", WorkspaceID: uuid.New(), Status: status}
	a.SetEnvironments(envs)
	return a
}

func ptr(t time.Time) *time.Time { return &t }

func TestStartDecommissionUsesLongestEnvironment(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationActive, "dev", "stage")
	wantEnd := now.AddDate(0, 0, 14)

	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)
	repo.On("UpdateLifecycle", mock.Anything, a.ID, models.ApplicationDecommissioning,
		mock.MatchedBy(func(s *time.Time) bool { return s != nil && s.Equal(now) }),
		mock.MatchedBy(func(e *time.Time) bool { return e != nil && e.Equal(wantEnd) }),
	).Return(nil)

	got, state, err := newService(repo).StartDecommission(context.Background(), a.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDecommissioning, got.Status)
	assert.Equal(t, lifecycle.StatusDecommissioning, state.Status)
	assert.True(t, state.CanCancel)
	require.NotNil(t, state.GracePeriod)
	assert.Equal(t, 14, state.GracePeriod.RemainingDays)
	repo.AssertExpectations(t)
}

func TestStartDecommissionOverride(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationActive, "prod")
	wantEnd := now.AddDate(0, 0, 5)

	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)
	repo.On("UpdateLifecycle", mock.Anything, a.ID, models.ApplicationDecommissioning, mock.Anything,
		mock.MatchedBy(func(e *time.Time) bool { return e.Equal(wantEnd) }),
	).Return(nil)

	_, state, err := newService(repo).StartDecommission(context.Background(), a.ID, 5)
	require.NoError(t, err)
	assert.True(t, state.GracePeriod.EndsAt.Equal(wantEnd))
}

func TestStartDecommissionRejectsNonActive(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationDecommissioning, "dev")
	a.DecommissioningStartedAt = ptr(now.Add(-time.Hour))
	a.GracePeriodEndsAt = ptr(now.AddDate(0, 0, 7))
	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)

	_, _, err := newService(repo).StartDecommission(context.Background(), a.ID, 0)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	repo.AssertNotCalled(t, "UpdateLifecycle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartDecommissionRepairsMissingGracePeriod(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationDecommissioning)
	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)
	repo.On("UpdateLifecycle", mock.Anything, a.ID, models.ApplicationDecommissioning, mock.Anything, mock.Anything).Return(nil)

	_, state, err := newService(repo).StartDecommission(context.Background(), a.ID, 0)
	require.NoError(t, err)
	// no environments falls back to the production default
	assert.True(t, state.GracePeriod.EndsAt.Equal(now.AddDate(0, 0, 30)))
}

func TestCancelDecommission(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationDecommissioning, "dev")
	a.DecommissioningStartedAt = ptr(now.Add(-24 * time.Hour))
	a.GracePeriodEndsAt = ptr(now.AddDate(0, 0, 6))

	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)
	repo.On("UpdateLifecycle", mock.Anything, a.ID, models.ApplicationActive, (*time.Time)(nil), (*time.Time)(nil)).Return(nil)

	got, state, err := newService(repo).CancelDecommission(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationActive, got.Status)
	assert.Nil(t, got.GracePeriodEndsAt)
	assert.Equal(t, lifecycle.StatusActive, state.Status)
	repo.AssertExpectations(t)
}

func TestCancelDecommissionAfterExpiryConflicts(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationDecommissioning, "dev")
	a.DecommissioningStartedAt = ptr(now.AddDate(0, 0, -8))
	a.GracePeriodEndsAt = ptr(now.AddDate(0, 0, -1))
	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)

	_, state, err := newService(repo).CancelDecommission(context.Background(), a.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
	assert.Equal(t, lifecycle.StatusGracePeriodExpired, state.Status)
}

func TestForceDelete(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationActive, "prod")
	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)
	repo.On("UpdateLifecycle", mock.Anything, a.ID, models.ApplicationDeleted, mock.Anything, mock.Anything).Return(nil)

	got, state, err := newService(repo).ForceDelete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationDeleted, got.Status)
	assert.True(t, state.IsDeleted)
	assert.False(t, state.CanForceDelete)
}

func TestForceDeleteTwiceConflicts(t *testing.T) {
	repo := new(mockApplicationRepository)
	a := app(models.ApplicationDeleted)
	repo.On("GetByID", mock.Anything, a.ID, mock.Anything).Return(nil, a)

	_, _, err := newService(repo).ForceDelete(context.Background(), a.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
}

func TestGetLifecycleNotFound(t *testing.T) {
	repo := new(mockApplicationRepository)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id, mock.Anything).Return(appErr.New(appErr.CodeNotFound, "entity not found"), nil)

	_, _, err := newService(repo).GetLifecycle(context.Background(), id)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	assert.Contains(t, err.Error(), "Application not found: "+id.String())
}
