package stats

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome delle run del council
const (
	OutcomeSuccess  = "success"
	OutcomeComplete = "complete"
	OutcomeError    = "error"
)

// Metrics espone metriche in formato Prometheus per invocazioni, stage e run.
// Un *Metrics nil è un no-op valido.
type Metrics struct {
	registry *prometheus.Registry

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	stageDuration      *prometheus.HistogramVec
	runsTotal          *prometheus.CounterVec
	fanoutInflight     prometheus.Gauge
}

// NewMetrics crea le metriche su un registry dedicato
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "council"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.invocationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Total number of model invocations by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	m.invocationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Model invocation duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	m.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Council stage duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
		},
		[]string{"stage"},
	)

	m.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of council runs by outcome",
		},
		[]string{"outcome"},
	)

	m.fanoutInflight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanout_inflight",
			Help:      "Number of model invocations currently in flight",
		},
	)

	return m
}

// RecordInvocation registra l'esito e la durata di un'invocazione
func (m *Metrics) RecordInvocation(model, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.invocationsTotal.WithLabelValues(model, outcome).Inc()
	m.invocationDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordStage registra la durata di uno stage
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRun registra l'esito finale di una run
func (m *Metrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
}

// IncInflight incrementa le invocazioni in corso
func (m *Metrics) IncInflight() {
	if m == nil {
		return
	}
	m.fanoutInflight.Inc()
}

// DecInflight decrementa le invocazioni in corso
func (m *Metrics) DecInflight() {
	if m == nil {
		return
	}
	m.fanoutInflight.Dec()
}

// Registry restituisce il registry Prometheus
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler restituisce l'handler HTTP per lo scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
