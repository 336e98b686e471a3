package lineage

import (
	"time"

	"github.com/devportal/engine/internal/models"
	"github.com/google/uuid"
)

// UpsertInput is one observation window for a (service account, topic, direction) tuple.
type UpsertInput struct {
	SourceServiceAccountID uuid.UUID        `json:"source_service_account_id" validate:"required"`
	TopicID                uuid.UUID        `json:"topic_id" validate:"required"`
	TargetWorkspaceID      uuid.UUID        `json:"target_workspace_id" validate:"required"`
	Direction              models.Direction `json:"direction" validate:"required,oneof=produce consume"`
	Bytes                  int64            `json:"bytes" validate:"gte=0"`
	MessageCount           int64            `json:"message_count" validate:"gte=0"`

	// Timestamp defaults to the current time when zero.
	Timestamp time.Time `json:"timestamp"`

	SourceApplicationID *uuid.UUID `json:"source_application_id,omitempty"`
	SourceWorkspaceID   *uuid.UUID `json:"source_workspace_id,omitempty"`
	TargetApplicationID *uuid.UUID `json:"target_application_id,omitempty"`
}

// UpsertResult is the edge after an upsert and whether the call created it.
type UpsertResult struct {
	Edge  models.LineageEdge `json:"edge"`
	IsNew bool               `json:"is_new"`
}

// BatchFailure reports an input that BatchUpsertEdges skipped.
type BatchFailure struct {
	Index int         `json:"index"`
	Input UpsertInput `json:"input"`
	Err   error       `json:"-"`
}

// QueryOptions apply to every graph and summary query.
type QueryOptions struct {
	IncludeInactive bool

	// Limit caps edges per underlying query; zero means no cap.
	Limit int
}

// CrossDirection selects which side of a workspace boundary to report.
type CrossDirection string

const (
	CrossInbound  CrossDirection = "inbound"
	CrossOutbound CrossDirection = "outbound"
	CrossBoth     CrossDirection = "both"
)

// SourceContext is where a service account lives.
type SourceContext struct {
	ApplicationID uuid.UUID `json:"application_id"`
	WorkspaceID   uuid.UUID `json:"workspace_id"`
}

// TopicContext is who owns a topic. The application is optional.
type TopicContext struct {
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	WorkspaceID   uuid.UUID  `json:"workspace_id"`
}

// ResolutionStatus tells why a context lookup did or did not succeed.
type ResolutionStatus string

const (
	Resolved        ResolutionStatus = "resolved"
	NotFound        ResolutionStatus = "not_found"
	BrokenReference ResolutionStatus = "broken_reference"
	LookupFailed    ResolutionStatus = "failed"
)

// Resolution is the outcome of a context lookup. It never carries a Value
// unless Status is Resolved.
type Resolution[T any] struct {
	Status ResolutionStatus
	Value  *T
	// Reason explains non-resolved outcomes for logs.
	Reason string
}

// Context returns the resolved value or nil.
func (r Resolution[T]) Context() *T {
	if r.Status != Resolved {
		return nil
	}
	return r.Value
}

func (r Resolution[T]) OK() bool {
	return r.Status == Resolved && r.Value != nil
}

func resolved[T any](v T) Resolution[T] {
	return Resolution[T]{Status: Resolved, Value: &v}
}

func unresolved[T any](status ResolutionStatus, reason string) Resolution[T] {
	return Resolution[T]{Status: status, Reason: reason}
}
