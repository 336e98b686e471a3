package lineage

import (
	"context"

	"github.com/devportal/engine/internal/models"
	"github.com/devportal/engine/internal/repository"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/google/uuid"
)

type TopicLineageSummary struct {
	TopicID                 uuid.UUID            `json:"topic_id"`
	Producers               []models.LineageEdge `json:"producers"`
	Consumers               []models.LineageEdge `json:"consumers"`
	TotalBytesLast24h       int64                `json:"total_bytes_last_24h"`
	TotalMessagesLast24h    int64                `json:"total_messages_last_24h"`
	CrossWorkspaceProducers int                  `json:"cross_workspace_producers"`
	CrossWorkspaceConsumers int                  `json:"cross_workspace_consumers"`
}

type ApplicationLineageSummary struct {
	ApplicationID          uuid.UUID            `json:"application_id"`
	ProducesTo             []models.LineageEdge `json:"produces_to"`
	ConsumesFrom           []models.LineageEdge `json:"consumes_from"`
	TotalBytesLast24h      int64                `json:"total_bytes_last_24h"`
	TotalMessagesLast24h   int64                `json:"total_messages_last_24h"`
	CrossWorkspaceProduces int                  `json:"cross_workspace_produces"`
	CrossWorkspaceConsumes int                  `json:"cross_workspace_consumes"`
}

// partition splits edges by direction and totals their rolling counters.
type partition struct {
	produce, consume           []models.LineageEdge
	bytes, messages            int64
	crossProduce, crossConsume int
}

func partitionEdges(edges []models.LineageEdge) partition {
	p := partition{produce: []models.LineageEdge{}, consume: []models.LineageEdge{}}
	for _, e := range edges {
		p.bytes += e.BytesLast24h
		p.messages += e.MessagesLast24h
		if e.Direction == models.DirectionProduce {
			p.produce = append(p.produce, e)
			if e.IsCrossWorkspace {
				p.crossProduce++
			}
			continue
		}
		p.consume = append(p.consume, e)
		if e.IsCrossWorkspace {
			p.crossConsume++
		}
	}
	return p
}

func (t *Tracker) GetTopicLineageSummary(ctx context.Context, topicID uuid.UUID, opts QueryOptions) (*TopicLineageSummary, error) {
	edges, err := t.findEdges(ctx, repository.Eq("topic_id", topicID), opts,
		[]string{models.EdgeSourceServiceAccount, models.EdgeSourceApplication})
	if err != nil {
		return nil, err
	}
	p := partitionEdges(edges)
	return &TopicLineageSummary{
		TopicID:                 topicID,
		Producers:               p.produce,
		Consumers:               p.consume,
		TotalBytesLast24h:       p.bytes,
		TotalMessagesLast24h:    p.messages,
		CrossWorkspaceProducers: p.crossProduce,
		CrossWorkspaceConsumers: p.crossConsume,
	}, nil
}

// GetApplicationLineageSummary reports the traffic of the application's own
// service accounts.
func (t *Tracker) GetApplicationLineageSummary(ctx context.Context, applicationID uuid.UUID, opts QueryOptions) (*ApplicationLineageSummary, error) {
	edges, err := t.findEdges(ctx, repository.Eq("source_application_id", applicationID), opts,
		[]string{models.EdgeTopic, models.EdgeTargetApplication})
	if err != nil {
		return nil, err
	}
	p := partitionEdges(edges)
	return &ApplicationLineageSummary{
		ApplicationID:          applicationID,
		ProducesTo:             p.produce,
		ConsumesFrom:           p.consume,
		TotalBytesLast24h:      p.bytes,
		TotalMessagesLast24h:   p.messages,
		CrossWorkspaceProduces: p.crossProduce,
		CrossWorkspaceConsumes: p.crossConsume,
	}, nil
}

// ParseCrossDirection maps a query parameter to a CrossDirection. Empty means both.
func ParseCrossDirection(s string) (CrossDirection, error) {
	switch d := CrossDirection(s); d {
	case "":
		return CrossBoth, nil
	case CrossInbound, CrossOutbound, CrossBoth:
		return d, nil
	default:
		return "", appErr.Newf(appErr.CodeInvalid, "invalid direction %q: want inbound, outbound or both", s)
	}
}

// GetCrossWorkspaceLineage lists cross-workspace edges touching a workspace.
// Inbound edges target it, outbound edges originate from it. Both runs the
// two queries separately and concatenates inbound then outbound.
func (t *Tracker) GetCrossWorkspaceLineage(ctx context.Context, workspaceID uuid.UUID, direction CrossDirection, opts QueryOptions) ([]models.LineageEdge, error) {
	cross := repository.Eq("is_cross_workspace", true)
	preload := []string{models.EdgeSourceServiceAccount, models.EdgeTopic}

	inbound := func() ([]models.LineageEdge, error) {
		return t.findEdges(ctx, repository.And(repository.Eq("target_workspace_id", workspaceID), cross), opts, preload)
	}
	outbound := func() ([]models.LineageEdge, error) {
		return t.findEdges(ctx, repository.And(repository.Eq("source_workspace_id", workspaceID), cross), opts, preload)
	}

	switch direction {
	case CrossInbound:
		return inbound()
	case CrossOutbound:
		return outbound()
	case CrossBoth:
		in, err := inbound()
		if err != nil {
			return nil, err
		}
		out, err := outbound()
		if err != nil {
			return nil, err
		}
		return append(in, out...), nil
	default:
		return nil, appErr.Newf(appErr.CodeInvalid, "invalid direction %q", direction)
	}
}
