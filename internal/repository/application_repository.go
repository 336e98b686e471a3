package repository

import (
	"context"
	"time"

	"github.com/devportal/engine/internal/models"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationRepository interface {
	BaseRepository[models.Application]
	UpdateLifecycle(ctx context.Context, appID uuid.UUID, status models.ApplicationStatus, startedAt, endsAt *time.Time) error
}

type applicationRepository struct {
	BaseRepository[models.Application]
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{BaseRepository: NewBaseRepository[models.Application](db)}
}

// UpdateLifecycle writes status and both decommissioning timestamps together;
// nil timestamps are stored as NULL.
func (r *applicationRepository) UpdateLifecycle(ctx context.Context, appID uuid.UUID, status models.ApplicationStatus, startedAt, endsAt *time.Time) error {
	err := r.Update(ctx, appID, map[string]any{
		"status":                     status,
		"decommissioning_started_at": startedAt,
		"grace_period_ends_at":       endsAt,
	})
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return appErr.New(appErr.CodeNotFound, "application not found")
	}
	return err
}
