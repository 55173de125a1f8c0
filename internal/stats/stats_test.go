package stats

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("")

	m.RecordInvocation("llama-3.1-8b-instant", OutcomeSuccess, 300*time.Millisecond)
	m.RecordInvocation("llama-3.1-8b-instant", OutcomeSuccess, 200*time.Millisecond)
	m.RecordInvocation("openai/gpt-oss-20b", "timeout", 120*time.Second)
	m.RecordStage("stage1", 2*time.Second)
	m.RecordRun(OutcomeComplete)
	m.IncInflight()
	m.IncInflight()
	m.DecInflight()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invocationsTotal.WithLabelValues("llama-3.1-8b-instant", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocationsTotal.WithLabelValues("openai/gpt-oss-20b", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(OutcomeComplete)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fanoutInflight))
	assert.Equal(t, 2, testutil.CollectAndCount(m.invocationDuration))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Due istanze non devono collidere sulla registrazione
	first := NewMetrics("council")
	second := NewMetrics("council")

	first.RecordRun(OutcomeError)
	assert.Equal(t, 0.0, testutil.ToFloat64(second.runsTotal.WithLabelValues(OutcomeError)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordInvocation("m", OutcomeSuccess, time.Second)
		m.RecordStage("stage2", time.Second)
		m.RecordRun(OutcomeComplete)
		m.IncInflight()
		m.DecInflight()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("council")
	m.RecordRun(OutcomeComplete)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `council_runs_total{outcome="complete"} 1`)
}
