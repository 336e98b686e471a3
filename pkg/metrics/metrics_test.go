package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLineageMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLineageMetrics(reg)

	m.Upserted(true, "produce", 100)
	m.Upserted(false, "produce", 50)
	m.Upserted(false, "consume", 7)
	m.BatchFailed()
	m.Deactivated(3)
	m.Reset(4)
	m.Dropped("topic_unresolved")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EdgesUpserted.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EdgesUpserted.WithLabelValues("updated")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.BytesObserved.WithLabelValues("produce")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EdgesDeactivated))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RollingResets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ObservationsDropped.WithLabelValues("topic_unresolved")))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Positive(t, count)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *LineageMetrics
	assert.NotPanics(t, func() {
		m.Upserted(true, "produce", 1)
		m.BatchFailed()
		m.Deactivated(1)
		m.Reset(1)
		m.Dropped("x")
	})
}

func TestHTTPMetricsObserve(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	m.Observe("GET", "/api/v1/lineage/topics/{id}/graph", 200, 30*time.Millisecond)
	m.Observe("GET", "/api/v1/lineage/topics/{id}/graph", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/v1/lineage/topics/{id}/graph", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))

	var none *HTTPMetrics
	none.Observe("GET", "/", 200, 0)
}
