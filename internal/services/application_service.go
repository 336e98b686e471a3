package services

import (
	"context"
	"time"

	"github.com/devportal/engine/internal/lifecycle"
	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/repository"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplicationService drives decommissioning on application records. Every
// transition is checked against the derived lifecycle state first.
type ApplicationService interface {
	GetLifecycle(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error)
	StartDecommission(ctx context.Context, appID uuid.UUID, overrideDays int) (*models.Application, lifecycle.State, error)
	CancelDecommission(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error)
	ForceDelete(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error)
}

type applicationService struct {
	apps  repository.ApplicationRepository
	clock lifecycle.Calculator
}

func NewApplicationService(apps repository.ApplicationRepository, clock lifecycle.Calculator) ApplicationService {
	if clock.Now == nil {
		clock.Now = time.Now
	}
	return &applicationService{apps: apps, clock: clock}
}

var _ ApplicationService = (*applicationService)(nil)

func (s *applicationService) load(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error) {
	var app models.Application
	if err := s.apps.GetByID(ctx, appID, &app); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, lifecycle.State{}, appErr.Newf(appErr.CodeNotFound, "Application not found: %s", appID)
		}
		return nil, lifecycle.State{}, err
	}
	state := s.clock.CalculateState(lifecycle.Status(app.Status), app.DecommissioningStartedAt, app.GracePeriodEndsAt)
	if app.Status == models.ApplicationDecommissioning && app.GracePeriodEndsAt == nil {
		logger.L().Warn("application is decommissioning without a grace period end, treating as active",
			zap.String("application_id", appID.String()))
	}
	return &app, state, nil
}

func (s *applicationService) GetLifecycle(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error) {
	return s.load(ctx, appID)
}

// StartDecommission opens the grace period. Its length is the longest default
// across the application's environments unless overrideDays is positive.
func (s *applicationService) StartDecommission(ctx context.Context, appID uuid.UUID, overrideDays int) (*models.Application, lifecycle.State, error) {
	app, state, err := s.load(ctx, appID)
	if err != nil {
		return nil, state, err
	}
	if state.Status != lifecycle.StatusActive {
		return nil, state, appErr.Newf(appErr.CodeConflict, "application is %s, only active applications can be decommissioned", state.Status)
	}

	startedAt := s.clock.Now().UTC()
	endsAt := lifecycle.CalculateGracePeriodEnd(startedAt, app.EnvironmentNames(), overrideDays)
	if err := s.apps.UpdateLifecycle(ctx, appID, models.ApplicationDecommissioning, &startedAt, &endsAt); err != nil {
		return nil, state, err
	}
	app.Status = models.ApplicationDecommissioning
	app.DecommissioningStartedAt = &startedAt
	app.GracePeriodEndsAt = &endsAt

	logger.L().Info("application decommissioning started",
		zap.String("application_id", appID.String()),
		zap.Time("grace_period_ends_at", endsAt),
		zap.Strings("environments", app.EnvironmentNames()),
	)
	return app, s.clock.CalculateState(lifecycle.Status(app.Status), &startedAt, &endsAt), nil
}

func (s *applicationService) CancelDecommission(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error) {
	app, state, err := s.load(ctx, appID)
	if err != nil {
		return nil, state, err
	}
	if !state.CanCancel {
		return nil, state, appErr.Newf(appErr.CodeConflict, "decommissioning of application in state %s cannot be cancelled", state.Status)
	}
	if err := s.apps.UpdateLifecycle(ctx, appID, models.ApplicationActive, nil, nil); err != nil {
		return nil, state, err
	}
	app.Status = models.ApplicationActive
	app.DecommissioningStartedAt = nil
	app.GracePeriodEndsAt = nil

	logger.L().Info("application decommissioning cancelled", zap.String("application_id", appID.String()))
	return app, s.clock.CalculateState(lifecycle.StatusActive, nil, nil), nil
}

// ForceDelete marks the application deleted. Timestamps are kept for audit.
func (s *applicationService) ForceDelete(ctx context.Context, appID uuid.UUID) (*models.Application, lifecycle.State, error) {
	app, state, err := s.load(ctx, appID)
	if err != nil {
		return nil, state, err
	}
	if !state.CanForceDelete {
		return nil, state, appErr.New(appErr.CodeConflict, "application is already deleted")
	}
	if err := s.apps.UpdateLifecycle(ctx, appID, models.ApplicationDeleted, app.DecommissioningStartedAt, app.GracePeriodEndsAt); err != nil {
		return nil, state, err
	}
	app.Status = models.ApplicationDeleted

	logger.L().Warn("application force deleted",
		zap.String("application_id", appID.String()),
		zap.String("previous_state", string(state.Status)),
	)
	return app, s.clock.CalculateState(lifecycle.StatusDeleted, nil, nil), nil
}
