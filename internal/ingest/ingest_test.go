package ingest

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/devportal/engine/internal/lineage"
	"github.com/devportal/engine/internal/models"
	appErr "github.com/devportal/engine/pkg/errors"
	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

type fakeTracker struct {
	sources     map[uuid.UUID]lineage.SourceContext
	topics      map[uuid.UUID]lineage.TopicContext
	topicLookup int
	batches     [][]lineage.UpsertInput
}

func (f *fakeTracker) ResolveServiceAccountContext(_ context.Context, id uuid.UUID) lineage.Resolution[lineage.SourceContext] {
	if sc, ok := f.sources[id]; ok {
		return lineage.Resolution[lineage.SourceContext]{Status: lineage.Resolved, Value: &sc}
	}
	return lineage.Resolution[lineage.SourceContext]{Status: lineage.BrokenReference, Reason: "no application"}
}

func (f *fakeTracker) ResolveTopicContext(_ context.Context, id uuid.UUID) lineage.Resolution[lineage.TopicContext] {
	f.topicLookup++
	if tc, ok := f.topics[id]; ok {
		return lineage.Resolution[lineage.TopicContext]{Status: lineage.Resolved, Value: &tc}
	}
	return lineage.Resolution[lineage.TopicContext]{Status: lineage.NotFound}
}

func (f *fakeTracker) BatchUpsertEdges(_ context.Context, inputs []lineage.UpsertInput) ([]lineage.UpsertResult, []lineage.BatchFailure) {
	f.batches = append(f.batches, inputs)
	out := make([]lineage.UpsertResult, 0, len(inputs))
	for i, in := range inputs {
		out = append(out, lineage.UpsertResult{Edge: models.LineageEdge{SourceServiceAccountID: in.SourceServiceAccountID}, IsNew: i == 0})
	}
	return out, nil
}

type fixture struct {
	tracker          *fakeTracker
	sa, orphanSA     uuid.UUID
	topic            uuid.UUID
	appID, ws, topWS uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		sa: uuid.New(), orphanSA: uuid.New(), topic: uuid.New(),
		appID: uuid.New(), ws: uuid.New(), topWS: uuid.New(),
	}
	f.tracker = &fakeTracker{
		sources: map[uuid.UUID]lineage.SourceContext{f.sa: {ApplicationID: f.appID, WorkspaceID: f.ws}},
		topics:  map[uuid.UUID]lineage.TopicContext{f.topic: {WorkspaceID: f.topWS}},
	}
	return f
}

func TestDecodeObservations(t *testing.T) {
	id := uuid.New()
	one := `{"service_account_id":"` + id.String() + `","topic_id":"` + id.String() + `","direction":"produce","bytes":5,"messages":1,"window_end":"2026-02-01T10:00:00Z"}`

	obs, err := DecodeObservations([]byte(one))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, models.DirectionProduce, obs[0].Direction)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), obs[0].WindowEnd.UTC())

	obs, err = DecodeObservations([]byte("  [" + one + "," + one + "]"))
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	_, err = DecodeObservations([]byte("{"))
	assert.Error(t, err)
	_, err = DecodeObservations(nil)
	assert.Error(t, err)
}

func TestProcessResolvesContextAndDropsUnusable(t *testing.T) {
	f := newFixture()
	m := metrics.NewLineageMetrics(prometheus.NewRegistry())
	p := NewProcessor(f.tracker, m)

	end := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	report := p.Process(context.Background(), []Observation{
		{ServiceAccountID: f.sa, TopicID: f.topic, Direction: models.DirectionProduce, Bytes: 10, Messages: 1, WindowEnd: end},
		{ServiceAccountID: f.orphanSA, TopicID: f.topic, Direction: models.DirectionConsume, Bytes: 3, WindowEnd: end},
		{ServiceAccountID: f.sa, TopicID: uuid.New(), Direction: models.DirectionProduce, WindowEnd: end},
		{ServiceAccountID: f.sa, TopicID: f.topic, Direction: "mirror"},
	})

	assert.Equal(t, Report{Received: 4, Dropped: 2, Created: 1, Updated: 1}, report)
	require.Len(t, f.tracker.batches, 1)
	inputs := f.tracker.batches[0]
	require.Len(t, inputs, 2)

	assert.Equal(t, f.topWS, inputs[0].TargetWorkspaceID)
	require.NotNil(t, inputs[0].SourceWorkspaceID)
	assert.Equal(t, f.ws, *inputs[0].SourceWorkspaceID)
	assert.Equal(t, f.appID, *inputs[0].SourceApplicationID)
	assert.Equal(t, end, inputs[0].Timestamp)

	// unresolvable service account still produces partial lineage
	assert.Nil(t, inputs[1].SourceWorkspaceID)
	assert.Nil(t, inputs[1].SourceApplicationID)

	// topic context is looked up once per topic
	assert.Equal(t, 2, f.tracker.topicLookup)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ObservationsDropped.WithLabelValues(DropUnresolvedTopic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ObservationsDropped.WithLabelValues(DropInvalid)))
}

func TestProcessAllDroppedSkipsBatch(t *testing.T) {
	f := newFixture()
	report := NewProcessor(f.tracker, nil).Process(context.Background(), []Observation{{Direction: models.DirectionProduce}})
	assert.Equal(t, 1, report.Dropped)
	assert.Empty(t, f.tracker.batches)
}

type fakeFetchClient struct {
	mu        sync.Mutex
	polls     []kgo.Fetches
	committed []*kgo.Record
	cancel    context.CancelFunc
	closed    bool
}

func (c *fakeFetchClient) PollFetches(context.Context) kgo.Fetches {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.polls) == 0 {
		c.cancel()
		return kgo.Fetches{}
	}
	next := c.polls[0]
	c.polls = c.polls[1:]
	return next
}

func (c *fakeFetchClient) CommitRecords(_ context.Context, rs ...*kgo.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, rs...)
	return nil
}

func (c *fakeFetchClient) Close() { c.closed = true }

func fetchOf(records ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "lineage.observations",
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: records}},
	}}}}
}

func TestConsumerProcessesAndCommits(t *testing.T) {
	f := newFixture()
	m := metrics.NewLineageMetrics(prometheus.NewRegistry())

	good, err := json.Marshal(Observation{
		ServiceAccountID: f.sa, TopicID: f.topic, Direction: models.DirectionProduce, Bytes: 1,
		WindowEnd: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	records := []*kgo.Record{
		{Topic: "lineage.observations", Offset: 1, Value: good},
		{Topic: "lineage.observations", Offset: 2, Value: []byte("not json")},
		{Topic: "lineage.observations", Offset: 3, Value: good},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &fakeFetchClient{polls: []kgo.Fetches{fetchOf(records...)}, cancel: cancel}
	c := newConsumer(client, NewProcessor(f.tracker, m), m)

	require.NoError(t, c.Run(ctx))
	c.Close()

	require.Len(t, f.tracker.batches, 1)
	assert.Len(t, f.tracker.batches[0], 2)
	// malformed records are committed too, they would never decode
	assert.Len(t, client.committed, 3)
	assert.True(t, client.closed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ObservationsDropped.WithLabelValues(DropMalformed)))
}

func TestValidateObservationsRequiresWindowEnd(t *testing.T) {
	end := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	ok := Observation{ServiceAccountID: uuid.New(), TopicID: uuid.New(), Direction: models.DirectionConsume, WindowEnd: end}
	require.NoError(t, ValidateObservations([]Observation{ok}))

	missing := ok
	missing.WindowEnd = time.Time{}
	err := ValidateObservations([]Observation{ok, missing})
	require.Error(t, err)
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	var ae *appErr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Meta["index"])
}
