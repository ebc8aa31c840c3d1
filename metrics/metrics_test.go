package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordLLMRequest("openai", "ok", 150*time.Millisecond)
	m.RecordLLMRequest("openai", "error", time.Second)
	m.RecordDispatchAttempt(false)
	m.RecordDispatchAttempt(true)
	m.RecordRefinement(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("openai", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DispatchAttemptsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefinementIterationsTotal))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.RefinementScore))
}

func TestSeparateRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordCacheHit()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheHitsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHitsTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheHit()
		m.RecordCacheMiss()
		m.RecordLLMRequest("openai", "ok", time.Second)
		m.RecordDispatchAttempt(true)
		m.RecordRefinement(1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordCacheHit()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "promptsmith_cache_hits_total 1")
}
