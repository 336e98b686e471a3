package types

import (
	"github.com/devportal/engine/internal/lifecycle"
	"github.com/devportal/engine/internal/models"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details string         `json:"details,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// LifecycleResponse pairs an application with its derived lifecycle state.
type LifecycleResponse struct {
	Application *models.Application `json:"application"`
	Lifecycle   lifecycle.State     `json:"lifecycle"`
}

type MaintenanceResponse struct {
	Task     string `json:"task"`
	Affected int64  `json:"affected"`
}

type EnqueueResponse struct {
	TaskID       string `json:"task_id"`
	Queue        string `json:"queue"`
	Observations int    `json:"observations"`
}
