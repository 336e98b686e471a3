package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/devportal/engine/internal/api/middleware"
	"github.com/devportal/engine/internal/api/types"
	"github.com/devportal/engine/internal/api/validators"
	"github.com/devportal/engine/internal/lifecycle"
	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/services"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"go.uber.org/zap"
)

type ApplicationsHandler struct {
	svc services.ApplicationService
}

func NewApplicationsHandler(svc services.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{svc: svc}
}

func (h *ApplicationsHandler) respond(w http.ResponseWriter, r *http.Request, app *models.Application, state lifecycle.State, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, types.LifecycleResponse{Application: app, Lifecycle: state})
}

func (h *ApplicationsHandler) Lifecycle(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, state, err := h.svc.GetLifecycle(r.Context(), id)
	h.respond(w, r, app, state, err)
}

// Decommission accepts an empty body or {"override_days": n}.
func (h *ApplicationsHandler) Decommission(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.DecommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid json"))
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeInvalid, "invalid decommission request"))
		return
	}

	logger.L().Info("decommission requested",
		zap.String("application_id", id.String()),
		zap.String("subject", middleware.GetSubject(r.Context())),
		zap.Int("override_days", req.OverrideDays),
	)
	app, state, err := h.svc.StartDecommission(r.Context(), id, req.OverrideDays)
	h.respond(w, r, app, state, err)
}

func (h *ApplicationsHandler) CancelDecommission(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, state, err := h.svc.CancelDecommission(r.Context(), id)
	h.respond(w, r, app, state, err)
}

func (h *ApplicationsHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.L().Warn("force delete requested",
		zap.String("application_id", id.String()),
		zap.String("subject", middleware.GetSubject(r.Context())),
	)
	app, state, err := h.svc.ForceDelete(r.Context(), id)
	h.respond(w, r, app, state, err)
}
