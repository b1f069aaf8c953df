// Package metrics holds the Prometheus collectors for imports and the HTTP
// API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "hcs"

// Metrics records import and HTTP activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	imports        *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	eventsDeleted  *prometheus.CounterVec
	eventsInserted *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MustNew registers the collectors with reg and panics on conflict. Use a
// fresh registry per instance.
func MustNew(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "runs_total",
				Help:      "Feed imports by source and outcome.",
			},
			[]string{"source", "status"},
		),
		importDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "duration_seconds",
				Help:      "Time spent fetching, parsing and storing one feed.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		eventsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "events_deleted_total",
				Help:      "Stored events superseded by imports.",
			},
			[]string{"source"},
		),
		eventsInserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "import",
				Name:      "events_inserted_total",
				Help:      "Events written by imports.",
			},
			[]string{"source"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP API requests by route and status code.",
			},
			[]string{"route", "code"},
		),
	}
	reg.MustRegister(m.imports, m.importDuration, m.eventsDeleted, m.eventsInserted, m.httpRequests)
	return m
}

// ObserveImport records one finished import of source.
func (m *Metrics) ObserveImport(source string, deleted, inserted int, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.imports.WithLabelValues(source, status).Inc()
	m.importDuration.WithLabelValues(source).Observe(took.Seconds())
	if err == nil {
		m.eventsDeleted.WithLabelValues(source).Add(float64(deleted))
		m.eventsInserted.WithLabelValues(source).Add(float64(inserted))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusLabel(code)).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
