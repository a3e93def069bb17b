// Package metrics records pipeline counters and stage timings on a private
// Prometheus registry. A nil *Manager is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	scenesFetched   *prometheus.CounterVec
	fetchRetries    *prometheus.CounterVec
	fetchFailures   *prometheus.CounterVec
	compositesBuilt *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	exportedPixels  prometheus.Counter
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "geocomposite",
		buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.scenesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source", Name: "scenes_fetched_total",
		Help: "Scenes loaded from a source provider.",
	}, []string{"dataset"})
	m.fetchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source", Name: "fetch_retries_total",
		Help: "Provider calls retried after a transient failure.",
	}, []string{"dataset"})
	m.fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source", Name: "fetch_failures_total",
		Help: "Fetches that gave up.",
	}, []string{"dataset"})
	m.compositesBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "composite", Name: "built_total",
		Help: "Composites produced, by reducer.",
	}, []string{"reducer"})
	m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "pipeline", Name: "stage_duration_seconds",
		Help:    "Wall time spent per pipeline stage.",
		Buckets: m.buckets,
	}, []string{"stage"})
	m.exportedPixels = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "export", Name: "pixels_total",
		Help: "Pixels written by exporters.",
	})
	m.registry.MustRegister(m.scenesFetched, m.fetchRetries, m.fetchFailures,
		m.compositesBuilt, m.stageDuration, m.exportedPixels)
	return m
}

func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Manager) SceneFetched(dataset string) {
	if m == nil {
		return
	}
	m.scenesFetched.WithLabelValues(dataset).Inc()
}

func (m *Manager) FetchRetried(dataset string) {
	if m == nil {
		return
	}
	m.fetchRetries.WithLabelValues(dataset).Inc()
}

func (m *Manager) FetchFailed(dataset string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(dataset).Inc()
}

func (m *Manager) CompositesBuilt(reducer string, n int) {
	if m == nil {
		return
	}
	m.compositesBuilt.WithLabelValues(reducer).Add(float64(n))
}

func (m *Manager) PixelsExported(n int) {
	if m == nil {
		return
	}
	m.exportedPixels.Add(float64(n))
}

// Stage starts timing stage; call the returned func when it ends.
func (m *Manager) Stage(stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// WriteTextfile dumps every metric in the text exposition format, for the
// node exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
