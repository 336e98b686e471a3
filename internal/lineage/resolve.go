package lineage

import (
	"context"

	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/repository"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveServiceAccountContext follows service account -> application ->
// workspace. Any missing hop is a soft failure, never an error.
func (t *Tracker) ResolveServiceAccountContext(ctx context.Context, serviceAccountID uuid.UUID) Resolution[SourceContext] {
	var sa models.ServiceAccount
	err := t.store.ServiceAccounts.FindByID(ctx, serviceAccountID, &sa, repository.FindOptions{
		Preload: []string{"Application.Workspace"},
	})
	if err != nil {
		return softFailure[SourceContext]("service_account", serviceAccountID, err)
	}

	if sa.ApplicationID == nil || sa.Application == nil {
		return broken[SourceContext]("service_account", serviceAccountID, "service account has no resolvable application")
	}
	app := sa.Application
	if app.Workspace == nil {
		return broken[SourceContext]("service_account", serviceAccountID, "application workspace cannot be resolved")
	}
	return resolved(SourceContext{ApplicationID: app.ID, WorkspaceID: app.Workspace.ID})
}

// ResolveTopicContext loads a topic's workspace, which is required, and its
// owning application, which is not.
func (t *Tracker) ResolveTopicContext(ctx context.Context, topicID uuid.UUID) Resolution[TopicContext] {
	var topic models.Topic
	err := t.store.Topics.FindByID(ctx, topicID, &topic, repository.FindOptions{
		Preload: []string{"Application", "Workspace"},
	})
	if err != nil {
		return softFailure[TopicContext]("topic", topicID, err)
	}

	if topic.WorkspaceID == nil || topic.Workspace == nil {
		return broken[TopicContext]("topic", topicID, "topic workspace cannot be resolved")
	}

	out := TopicContext{WorkspaceID: topic.Workspace.ID}
	if topic.Application != nil {
		id := topic.Application.ID
		out.ApplicationID = &id
	} else if topic.ApplicationID != nil {
		logger.L().Debug("topic application reference dangling, treating topic as unowned",
			zap.String("topic_id", topicID.String()),
			zap.String("application_id", topic.ApplicationID.String()),
		)
	}
	return resolved(out)
}

func softFailure[T any](entity string, id uuid.UUID, err error) Resolution[T] {
	if appErr.IsCode(err, appErr.CodeNotFound) {
		logger.L().Warn("lineage context lookup: entity not found", zap.String("entity", entity), zap.String("id", id.String()))
		return unresolved[T](NotFound, entity+" not found")
	}
	logger.L().Error("lineage context lookup failed", zap.String("entity", entity), zap.String("id", id.String()), zap.Error(err))
	return unresolved[T](LookupFailed, err.Error())
}

func broken[T any](entity string, id uuid.UUID, reason string) Resolution[T] {
	logger.L().Warn("lineage context lookup: broken reference",
		zap.String("entity", entity),
		zap.String("id", id.String()),
		zap.String("reason", reason),
	)
	return unresolved[T](BrokenReference, reason)
}
