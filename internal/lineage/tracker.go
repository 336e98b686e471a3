// Package lineage tracks produce/consume traffic between service accounts
// and topics as deduplicated, accumulating edges, and answers graph and
// summary queries over them. The tracker keeps no state between calls.
package lineage

import (
	"context"
	"time"

	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/repository"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultInactiveHours is the stale-edge threshold used when none is given.
const DefaultInactiveHours = 24

// Tracker is the lineage edge tracker.
type Tracker struct {
	store    *repository.Store
	metrics  *metrics.LineageMetrics
	now      func() time.Time
	validate *validator.Validate
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMetrics records upserts and maintenance in m.
func WithMetrics(m *metrics.LineageMetrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func NewTracker(store *repository.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UpsertEdge folds one observation into the edge for its tuple, creating the
// edge on first sight. It reads once and writes once.
func (t *Tracker) UpsertEdge(ctx context.Context, in UpsertInput) (UpsertResult, error) {
	if err := t.validate.Struct(in); err != nil {
		return UpsertResult{}, appErr.Wrap(err, appErr.CodeInvalid, "invalid lineage edge input")
	}
	seenAt := in.Timestamp
	if seenAt.IsZero() {
		seenAt = t.now()
	}
	seenAt = seenAt.UTC()

	key := repository.EdgeKey{
		SourceServiceAccountID: in.SourceServiceAccountID,
		TopicID:                in.TopicID,
		Direction:              in.Direction,
	}

	var existing models.LineageEdge
	err := t.store.Edges.FindByKey(ctx, key, &existing)
	if err == nil {
		return t.accumulate(ctx, existing, in, seenAt)
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return UpsertResult{}, err
	}

	edge := newEdge(in, seenAt)
	if err := t.store.Edges.Create(ctx, &edge); err != nil {
		// lost a creation race on the unique key: fold into the winner
		if ferr := t.store.Edges.FindByKey(ctx, key, &existing); ferr == nil {
			logger.L().Debug("lineage edge created concurrently, accumulating", zap.String("edge_id", existing.ID.String()))
			return t.accumulate(ctx, existing, in, seenAt)
		}
		return UpsertResult{}, err
	}

	t.metrics.Upserted(true, string(in.Direction), in.Bytes)
	logger.L().Debug("lineage edge created",
		zap.String("edge_id", edge.ID.String()),
		zap.String("service_account_id", in.SourceServiceAccountID.String()),
		zap.String("topic_id", in.TopicID.String()),
		zap.String("direction", string(in.Direction)),
		zap.Bool("cross_workspace", edge.IsCrossWorkspace),
	)
	return UpsertResult{Edge: edge, IsNew: true}, nil
}

func newEdge(in UpsertInput, seenAt time.Time) models.LineageEdge {
	return models.LineageEdge{
		SourceServiceAccountID: in.SourceServiceAccountID,
		TopicID:                in.TopicID,
		Direction:              in.Direction,
		SourceApplicationID:    in.SourceApplicationID,
		SourceWorkspaceID:      in.SourceWorkspaceID,
		TargetApplicationID:    in.TargetApplicationID,
		TargetWorkspaceID:      in.TargetWorkspaceID,
		BytesLast24h:           in.Bytes,
		MessagesLast24h:        in.MessageCount,
		BytesAllTime:           in.Bytes,
		MessagesAllTime:        in.MessageCount,
		FirstSeen:              seenAt,
		LastSeen:               seenAt,
		IsActive:               true,
		IsCrossWorkspace:       in.SourceWorkspaceID != nil && *in.SourceWorkspaceID != in.TargetWorkspaceID,
	}
}

func (t *Tracker) accumulate(ctx context.Context, edge models.LineageEdge, in UpsertInput, seenAt time.Time) (UpsertResult, error) {
	err := t.store.Edges.Accumulate(ctx, edge.ID, repository.EdgeDelta{
		Bytes:               in.Bytes,
		Messages:            in.MessageCount,
		SeenAt:              seenAt,
		SourceApplicationID: in.SourceApplicationID,
		SourceWorkspaceID:   in.SourceWorkspaceID,
	})
	if err != nil {
		return UpsertResult{}, err
	}

	// mirror the UPDATE on the copy we read
	edge.BytesLast24h += in.Bytes
	edge.MessagesLast24h += in.MessageCount
	edge.BytesAllTime += in.Bytes
	edge.MessagesAllTime += in.MessageCount
	edge.LastSeen = seenAt
	edge.IsActive = true
	if edge.SourceApplicationID == nil {
		edge.SourceApplicationID = in.SourceApplicationID
	}
	if edge.SourceWorkspaceID == nil {
		edge.SourceWorkspaceID = in.SourceWorkspaceID
	}

	t.metrics.Upserted(false, string(in.Direction), in.Bytes)
	return UpsertResult{Edge: edge}, nil
}

// BatchUpsertEdges upserts inputs one after another. Order matters: two
// observations of the same tuple must not interleave their read and write.
// Failed inputs are logged, skipped and reported in failures.
func (t *Tracker) BatchUpsertEdges(ctx context.Context, inputs []UpsertInput) ([]UpsertResult, []BatchFailure) {
	results := make([]UpsertResult, 0, len(inputs))
	var failures []BatchFailure

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(inputs); j++ {
				failures = append(failures, BatchFailure{Index: j, Input: inputs[j], Err: err})
			}
			logger.L().Warn("lineage batch aborted", zap.Int("processed", i), zap.Int("remaining", len(inputs)-i), zap.Error(err))
			break
		}
		res, err := t.UpsertEdge(ctx, in)
		if err != nil {
			t.metrics.BatchFailed()
			logger.L().Error("lineage batch item failed",
				zap.Int("index", i),
				zap.String("service_account_id", in.SourceServiceAccountID.String()),
				zap.String("topic_id", in.TopicID.String()),
				zap.String("direction", string(in.Direction)),
				zap.Error(err),
			)
			failures = append(failures, BatchFailure{Index: i, Input: in, Err: err})
			continue
		}
		results = append(results, res)
	}
	return results, failures
}

// MarkInactiveEdges flips active edges not seen for hoursThreshold hours to
// inactive and returns how many changed. A non-positive threshold means 24h.
func (t *Tracker) MarkInactiveEdges(ctx context.Context, hoursThreshold int) (int64, error) {
	if hoursThreshold <= 0 {
		hoursThreshold = DefaultInactiveHours
	}
	cutoff := t.now().UTC().Add(-time.Duration(hoursThreshold) * time.Hour)
	n, err := t.store.Edges.MarkInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	t.metrics.Deactivated(n)
	logger.L().Info("stale lineage edges marked inactive", zap.Int64("count", n), zap.Int("hours_threshold", hoursThreshold))
	return n, nil
}

// Reset24hMetrics zeroes the rolling counters of every edge that has any.
// All-time counters and activity are untouched.
func (t *Tracker) Reset24hMetrics(ctx context.Context) (int64, error) {
	n, err := t.store.Edges.ResetRolling(ctx)
	if err != nil {
		return 0, err
	}
	t.metrics.Reset(n)
	logger.L().Info("rolling lineage metrics reset", zap.Int64("count", n))
	return n, nil
}
