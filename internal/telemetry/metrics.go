package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a Recorder backed by Prometheus. Besides operation latency it
// exposes counters for the event pipeline and question generation.
type Metrics struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	eventsAccepted     prometheus.Counter
	eventsDuplicate    prometheus.Counter
	eventsDropped      *prometheus.CounterVec
	questionsGenerated *prometheus.CounterVec
	questionsDiscarded prometheus.Counter
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom latency buckets in seconds.
func WithHistogramBuckets(buckets []float64) MetricsOption {
	return func(m *Metrics) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(m *Metrics) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewMetrics creates and registers all metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace:        "actprep",
		histogramBuckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.operations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "operations_total",
		Help:      "Operations by name and outcome",
	}, []string{"operation", "outcome"})
	m.operationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "operation_duration_seconds",
		Help:      "Operation latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})
	m.eventsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_accepted_total",
		Help:      "Response events that passed normalisation",
	})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_duplicate_total",
		Help:      "Duplicate response events removed during normalisation",
	})
	m.eventsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_dropped_total",
		Help:      "Response events rejected during normalisation",
	}, []string{"reason"})
	m.questionsGenerated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "questions_generated_total",
		Help:      "Questions returned to callers by parse path",
	}, []string{"source"})
	m.questionsDiscarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "questions_discarded_total",
		Help:      "Generated question records that failed validation",
	})

	return m
}

func (m *Metrics) Start(ctx context.Context, op string) (context.Context, EndFunc) {
	start := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.operations.WithLabelValues(op, outcome).Inc()
		m.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// RecordNormalization adds one normalisation pass to the event counters.
func (m *Metrics) RecordNormalization(accepted, duplicates int, dropped map[string]int) {
	m.eventsAccepted.Add(float64(accepted))
	m.eventsDuplicate.Add(float64(duplicates))
	for reason, n := range dropped {
		m.eventsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordGeneration adds one generation result to the question counters.
func (m *Metrics) RecordGeneration(source string, returned, discarded int) {
	m.questionsGenerated.WithLabelValues(source).Add(float64(returned))
	m.questionsDiscarded.Add(float64(discarded))
}

// Registry returns the registry holding these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
