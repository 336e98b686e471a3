package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/devportal/engine/internal/api/types"
	"github.com/devportal/engine/internal/api/validators"
	"github.com/devportal/engine/internal/ingest"
	"github.com/devportal/engine/internal/lineage"
	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/queue/tasks"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxObservationBody bounds a single observation submission.
const maxObservationBody = 4 << 20

// LineageReader answers lineage queries.
type LineageReader interface {
	GetTopicLineageGraph(ctx context.Context, topicID uuid.UUID, opts lineage.QueryOptions) (*lineage.Graph, error)
	GetApplicationLineageGraph(ctx context.Context, applicationID uuid.UUID, opts lineage.QueryOptions) (*lineage.Graph, error)
	GetTopicLineageSummary(ctx context.Context, topicID uuid.UUID, opts lineage.QueryOptions) (*lineage.TopicLineageSummary, error)
	GetApplicationLineageSummary(ctx context.Context, applicationID uuid.UUID, opts lineage.QueryOptions) (*lineage.ApplicationLineageSummary, error)
	GetCrossWorkspaceLineage(ctx context.Context, workspaceID uuid.UUID, direction lineage.CrossDirection, opts lineage.QueryOptions) ([]models.LineageEdge, error)
}

type LineageHandler struct {
	reader     LineageReader
	maintainer tasks.Maintainer
	queue      tasks.Enqueuer
}

func NewLineageHandler(reader LineageReader, maintainer tasks.Maintainer, queue tasks.Enqueuer) *LineageHandler {
	return &LineageHandler{reader: reader, maintainer: maintainer, queue: queue}
}

func parseLineageQuery(r *http.Request) (types.LineageQuery, error) {
	var q types.LineageQuery
	var err error
	if q.IncludeInactive, err = boolQuery(r, "include_inactive"); err != nil {
		return q, err
	}
	if q.Limit, err = intQuery(r, "limit"); err != nil {
		return q, err
	}
	q.Direction = r.URL.Query().Get("direction")
	if err := validators.New().Struct(q); err != nil {
		return q, appErr.Wrap(err, appErr.CodeInvalid, "invalid query parameters")
	}
	return q, nil
}

func queryOptions(q types.LineageQuery) lineage.QueryOptions {
	return lineage.QueryOptions{IncludeInactive: q.IncludeInactive, Limit: q.Limit}
}

// request parses the path ID and common query parameters.
func (h *LineageHandler) request(r *http.Request) (uuid.UUID, types.LineageQuery, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return uuid.Nil, types.LineageQuery{}, err
	}
	q, err := parseLineageQuery(r)
	return id, q, err
}

func (h *LineageHandler) TopicGraph(w http.ResponseWriter, r *http.Request) {
	id, q, err := h.request(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.reader.GetTopicLineageGraph(r.Context(), id, queryOptions(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, g)
}

func (h *LineageHandler) TopicSummary(w http.ResponseWriter, r *http.Request) {
	id, q, err := h.request(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.reader.GetTopicLineageSummary(r.Context(), id, queryOptions(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, s)
}

func (h *LineageHandler) ApplicationGraph(w http.ResponseWriter, r *http.Request) {
	id, q, err := h.request(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.reader.GetApplicationLineageGraph(r.Context(), id, queryOptions(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, g)
}

func (h *LineageHandler) ApplicationSummary(w http.ResponseWriter, r *http.Request) {
	id, q, err := h.request(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.reader.GetApplicationLineageSummary(r.Context(), id, queryOptions(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, s)
}

func (h *LineageHandler) CrossWorkspace(w http.ResponseWriter, r *http.Request) {
	id, q, err := h.request(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dir, err := lineage.ParseCrossDirection(q.Direction)
	if err != nil {
		writeError(w, r, err)
		return
	}
	edges, err := h.reader.GetCrossWorkspaceLineage(r.Context(), id, dir, queryOptions(q))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if edges == nil {
		edges = []models.LineageEdge{}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: edges, Meta: &types.Meta{Total: int64(len(edges))}})
}

// SubmitObservations checks every observation and queues the batch for
// ingestion.
func (h *LineageHandler) SubmitObservations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxObservationBody))
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "observation payload unreadable or too large"))
		return
	}
	body = bytes.TrimSpace(body)
	obs, err := ingest.DecodeObservations(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := ingest.ValidateObservations(obs); err != nil {
		writeError(w, r, err)
		return
	}

	info, err := tasks.EnqueueIngest(r.Context(), h.queue, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.L().Info("observation batch queued", zap.String("task_id", info.ID), zap.Int("observations", len(obs)))
	writeData(w, r, http.StatusAccepted, types.EnqueueResponse{TaskID: info.ID, Queue: info.Queue, Observations: len(obs)})
}

func (h *LineageHandler) ResetRolling(w http.ResponseWriter, r *http.Request) {
	n, err := h.maintainer.Reset24hMetrics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.MaintenanceResponse{Task: tasks.TypeReset24h, Affected: n})
}

func (h *LineageHandler) MarkInactive(w http.ResponseWriter, r *http.Request) {
	hours, err := intQuery(r, "hours")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := validators.New().Struct(types.MarkInactiveRequest{Hours: hours}); err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid hours"))
		return
	}
	n, err := h.maintainer.MarkInactiveEdges(r.Context(), hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.MaintenanceResponse{Task: tasks.TypeMarkInactive, Affected: n})
}
