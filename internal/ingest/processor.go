package ingest

import (
	"context"

	"github.com/devportal/engine/internal/lineage"
	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker is the part of lineage.Tracker ingestion needs.
type Tracker interface {
	ResolveServiceAccountContext(ctx context.Context, serviceAccountID uuid.UUID) lineage.Resolution[lineage.SourceContext]
	ResolveTopicContext(ctx context.Context, topicID uuid.UUID) lineage.Resolution[lineage.TopicContext]
	BatchUpsertEdges(ctx context.Context, inputs []lineage.UpsertInput) ([]lineage.UpsertResult, []lineage.BatchFailure)
}

// Drop reasons, also used as metric labels.
const (
	DropInvalid         = "invalid"
	DropUnresolvedTopic = "unresolved_topic"
)

// Report summarizes one Process call.
type Report struct {
	Received int `json:"received"`
	Dropped  int `json:"dropped"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

type Processor struct {
	tracker Tracker
	metrics *metrics.LineageMetrics
	log     *zap.Logger
}

func NewProcessor(tracker Tracker, m *metrics.LineageMetrics) *Processor {
	return &Processor{
		tracker: tracker,
		metrics: m,
		log:     logger.Named("ingest"),
	}
}

// Process resolves catalog context for each observation and upserts the
// batch in order. A service account that cannot be resolved still yields an
// edge without source context; a topic that cannot be resolved does not,
// since every edge needs a target workspace.
func (p *Processor) Process(ctx context.Context, observations []Observation) Report {
	report := Report{Received: len(observations)}
	sources := map[uuid.UUID]lineage.Resolution[lineage.SourceContext]{}
	topics := map[uuid.UUID]lineage.Resolution[lineage.TopicContext]{}

	inputs := make([]lineage.UpsertInput, 0, len(observations))
	for i, obs := range observations {
		if err := obs.Validate(); err != nil {
			p.drop(&report, DropInvalid, zap.Int("index", i), zap.Error(err))
			continue
		}

		tc, ok := topics[obs.TopicID]
		if !ok {
			tc = p.tracker.ResolveTopicContext(ctx, obs.TopicID)
			topics[obs.TopicID] = tc
		}
		if !tc.OK() {
			p.drop(&report, DropUnresolvedTopic,
				zap.String("topic_id", obs.TopicID.String()),
				zap.String("status", string(tc.Status)),
				zap.String("reason", tc.Reason),
			)
			continue
		}

		sc, ok := sources[obs.ServiceAccountID]
		if !ok {
			sc = p.tracker.ResolveServiceAccountContext(ctx, obs.ServiceAccountID)
			sources[obs.ServiceAccountID] = sc
		}

		in := lineage.UpsertInput{
			SourceServiceAccountID: obs.ServiceAccountID,
			TopicID:                obs.TopicID,
			TargetWorkspaceID:      tc.Context().WorkspaceID,
			TargetApplicationID:    tc.Context().ApplicationID,
			Direction:              obs.Direction,
			Bytes:                  obs.Bytes,
			MessageCount:           obs.Messages,
			Timestamp:              obs.WindowEnd,
		}
		if src := sc.Context(); src != nil {
			appID, wsID := src.ApplicationID, src.WorkspaceID
			in.SourceApplicationID = &appID
			in.SourceWorkspaceID = &wsID
		}
		inputs = append(inputs, in)
	}

	if len(inputs) > 0 {
		results, failures := p.tracker.BatchUpsertEdges(ctx, inputs)
		for _, r := range results {
			if r.IsNew {
				report.Created++
			} else {
				report.Updated++
			}
		}
		report.Failed = len(failures)
	}

	p.log.Info("observations processed",
		zap.Int("received", report.Received),
		zap.Int("dropped", report.Dropped),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)
	return report
}

func (p *Processor) drop(report *Report, reason string, fields ...zap.Field) {
	report.Dropped++
	p.metrics.Dropped(reason)
	p.log.Warn("observation dropped", append([]zap.Field{zap.String("reason", reason)}, fields...)...)
}
