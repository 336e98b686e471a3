// Package tasks defines the asynq tasks of the lineage engine and their
// handlers.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/devportal/engine/internal/ingest"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/utils"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeIngest       = "lineage:ingest"
	TypeReset24h     = "lineage:reset-24h"
	TypeMarkInactive = "lineage:mark-inactive"
)

// ingestRetention keeps finished ingest tasks around so a resubmitted
// payload still collides on its task ID.
const ingestRetention = 24 * time.Hour

// MarkInactivePayload is the payload of TypeMarkInactive. Zero hours means
// the worker's configured threshold.
type MarkInactivePayload struct {
	HoursThreshold int `json:"hours_threshold"`
}

// NewIngestTask wraps a raw observation payload. The task ID is derived from
// the payload, so the queue rejects an identical submission.
func NewIngestTask(payload []byte) *asynq.Task {
	return asynq.NewTask(TypeIngest, payload,
		asynq.TaskID(utils.ContentKey(TypeIngest, payload)),
		asynq.MaxRetry(5),
		asynq.Retention(ingestRetention),
	)
}

func NewReset24hTask() *asynq.Task {
	return asynq.NewTask(TypeReset24h, nil, asynq.MaxRetry(3))
}

func NewMarkInactiveTask(hoursThreshold int) (*asynq.Task, error) {
	pb, err := json.Marshal(MarkInactivePayload{HoursThreshold: hoursThreshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMarkInactive, pb, asynq.MaxRetry(3)), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueIngest submits an observation payload. A payload already queued or
// recently processed yields an already_exists error.
func EnqueueIngest(ctx context.Context, q Enqueuer, payload []byte) (*asynq.TaskInfo, error) {
	info, err := q.EnqueueContext(ctx, NewIngestTask(payload))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil, appErr.Wrap(err, appErr.CodeAlreadyExists, "observation batch already submitted")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "enqueue observation batch failed")
	}
	return info, nil
}

// Maintainer runs the periodic edge maintenance.
type Maintainer interface {
	MarkInactiveEdges(ctx context.Context, hoursThreshold int) (int64, error)
	Reset24hMetrics(ctx context.Context) (int64, error)
}

// Ingester turns observations into edges.
type Ingester interface {
	Process(ctx context.Context, observations []ingest.Observation) ingest.Report
}

// LineageTaskHandler handles every lineage task type.
type LineageTaskHandler struct {
	maintainer   Maintainer
	ingester     Ingester
	defaultHours int
}

func NewLineageTaskHandler(maintainer Maintainer, ingester Ingester, defaultHours int) *LineageTaskHandler {
	return &LineageTaskHandler{maintainer: maintainer, ingester: ingester, defaultHours: defaultHours}
}

// Register binds the handlers on mux.
func (h *LineageTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeIngest, h.HandleIngest)
	mux.HandleFunc(TypeReset24h, h.HandleReset24h)
	mux.HandleFunc(TypeMarkInactive, h.HandleMarkInactive)
}

func (h *LineageTaskHandler) HandleIngest(ctx context.Context, t *asynq.Task) error {
	obs, err := ingest.DecodeObservations(t.Payload())
	if err != nil {
		logger.L().Error("invalid ingest task payload", zap.Error(err))
		// retrying cannot fix the payload
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	report := h.ingester.Process(ctx, obs)
	logger.L().Info("ingest task done",
		zap.Int("received", report.Received),
		zap.Int("dropped", report.Dropped),
		zap.Int("failed", report.Failed),
	)
	// Retry only when nothing was written. A partial batch is acked, since
	// replaying it would count the written observations twice.
	if report.Failed > 0 && report.Failed == report.Received-report.Dropped {
		return fmt.Errorf("ingest task: all %d usable observations failed", report.Failed)
	}
	return nil
}

func (h *LineageTaskHandler) HandleReset24h(ctx context.Context, _ *asynq.Task) error {
	n, err := h.maintainer.Reset24hMetrics(ctx)
	if err != nil {
		logger.L().Error("rolling metrics reset failed", zap.Error(err))
		return err
	}
	logger.L().Info("rolling metrics reset task done", zap.Int64("edges", n))
	return nil
}

func (h *LineageTaskHandler) HandleMarkInactive(ctx context.Context, t *asynq.Task) error {
	var p MarkInactivePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.L().Error("invalid mark-inactive task payload", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
	}
	hours := p.HoursThreshold
	if hours <= 0 {
		hours = h.defaultHours
	}
	n, err := h.maintainer.MarkInactiveEdges(ctx, hours)
	if err != nil {
		logger.L().Error("mark inactive failed", zap.Int("hours_threshold", hours), zap.Error(err))
		return err
	}
	logger.L().Info("mark inactive task done", zap.Int64("edges", n), zap.Int("hours_threshold", hours))
	return nil
}
