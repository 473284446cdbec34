// Package metrics exposes Prometheus collectors for the parse pipeline and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acc"

var durationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds the service collectors and the registry they live in.
// It satisfies pipeline.Observer.
type Metrics struct {
	registry *prometheus.Registry

	parseTotal    *prometheus.CounterVec
	parseErrors   prometheus.Counter
	stageFailures *prometheus.CounterVec
	parseDuration prometheus.Histogram
	httpRequests  *prometheus.CounterVec
}

// New creates the collectors on a fresh registry. Go runtime and process
// collectors are included when withRuntime is set.
func New(withRuntime bool) (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry(), withRuntime)
}

// NewWithRegistry registers the collectors with registry.
func NewWithRegistry(registry *prometheus.Registry, withRuntime bool) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.parseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_total",
		Help:      "Texts parsed, by winning resolution strategy.",
	}, []string{"strategy"})

	m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_errors_total",
		Help:      "Texts whose parse failed outright.",
	})

	m.stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_failures_total",
		Help:      "Pipeline stages that faulted and were degraded to empty output.",
	}, []string{"stage"})

	m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "parse_duration_seconds",
		Help:      "Time spent parsing a single text.",
		Buckets:   durationBuckets,
	})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})

	cs := []prometheus.Collector{
		m.parseTotal,
		m.parseErrors,
		m.stageFailures,
		m.parseDuration,
		m.httpRequests,
	}
	if withRuntime {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveParse records one completed parse.
func (m *Metrics) ObserveParse(strategy string, took time.Duration, failed bool) {
	m.parseTotal.WithLabelValues(strategy).Inc()
	m.parseDuration.Observe(took.Seconds())
	if failed {
		m.parseErrors.Inc()
	}
}

// ObserveStageFailure records a faulted pipeline stage.
func (m *Metrics) ObserveStageFailure(stage string) {
	m.stageFailures.WithLabelValues(stage).Inc()
}

// ObserveRequest records one served HTTP request. route is the matched
// route pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
