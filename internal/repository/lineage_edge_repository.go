package repository

import (
	"context"
	"time"

	"github.com/devportal/engine/internal/models"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EdgeKey identifies a lineage edge.
type EdgeKey struct {
	SourceServiceAccountID uuid.UUID
	TopicID                uuid.UUID
	Direction              models.Direction
}

// EdgeDelta is one observation's contribution to an existing edge.
type EdgeDelta struct {
	Bytes               int64
	Messages            int64
	SeenAt              time.Time
	SourceApplicationID *uuid.UUID
	SourceWorkspaceID   *uuid.UUID
}

type LineageEdgeRepository interface {
	BaseRepository[models.LineageEdge]
	FindByKey(ctx context.Context, key EdgeKey, dest *models.LineageEdge) error
	Accumulate(ctx context.Context, edgeID uuid.UUID, delta EdgeDelta) error
	MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ResetRolling(ctx context.Context) (int64, error)
}

type lineageEdgeRepository struct {
	BaseRepository[models.LineageEdge]
	db *gorm.DB
}

func NewLineageEdgeRepository(db *gorm.DB) LineageEdgeRepository {
	return &lineageEdgeRepository{BaseRepository: NewBaseRepository[models.LineageEdge](db), db: db}
}

func (r *lineageEdgeRepository) FindByKey(ctx context.Context, key EdgeKey, dest *models.LineageEdge) error {
	where := And(
		Eq("source_service_account_id", key.SourceServiceAccountID),
		Eq("topic_id", key.TopicID),
		Eq("direction", key.Direction),
	)
	if err := r.FindOne(ctx, where, dest, FindOptions{}); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return appErr.New(appErr.CodeNotFound, "lineage edge not found")
		}
		return err
	}
	return nil
}

// Accumulate adds delta to the rolling and all-time counters in a single
// UPDATE so concurrent writers never lose increments. Source application and
// workspace are only filled when still NULL.
func (r *lineageEdgeRepository) Accumulate(ctx context.Context, edgeID uuid.UUID, delta EdgeDelta) error {
	res := r.db.WithContext(ctx).Model(&models.LineageEdge{}).Where("id = ?", edgeID).Updates(map[string]any{
		"bytes_last_24h":        gorm.Expr("bytes_last_24h + ?", delta.Bytes),
		"messages_last_24h":     gorm.Expr("messages_last_24h + ?", delta.Messages),
		"bytes_all_time":        gorm.Expr("bytes_all_time + ?", delta.Bytes),
		"messages_all_time":     gorm.Expr("messages_all_time + ?", delta.Messages),
		"last_seen":             delta.SeenAt,
		"is_active":             true,
		"source_application_id": gorm.Expr("COALESCE(source_application_id, ?)", delta.SourceApplicationID),
		"source_workspace_id":   gorm.Expr("COALESCE(source_workspace_id, ?)", delta.SourceWorkspaceID),
	})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "accumulate lineage edge failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "lineage edge not found")
	}
	return nil
}

func (r *lineageEdgeRepository) MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.UpdateWhere(ctx,
		And(Eq("is_active", true), Lt("last_seen", cutoff)),
		map[string]any{"is_active": false},
	)
}

func (r *lineageEdgeRepository) ResetRolling(ctx context.Context) (int64, error) {
	return r.UpdateWhere(ctx,
		Or(Gt("bytes_last_24h", 0), Gt("messages_last_24h", 0)),
		map[string]any{"bytes_last_24h": 0, "messages_last_24h": 0},
	)
}
