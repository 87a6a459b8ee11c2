package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes
const (
	RefreshApplied   = "applied"
	RefreshDiscarded = "discarded"
	RefreshFailed    = "failed"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	refreshesTotal     *prometheus.CounterVec
	appliedSequence    prometheus.Gauge
	slaCompliance      prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		generationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_generations_total",
			Help: "Total snapshot generations by source and outcome.",
		}, []string{"source", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapshot_generation_duration_seconds",
			Help:    "Histogram of snapshot generation durations by source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		refreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_refreshes_total",
			Help: "Total dashboard refreshes by result (applied, discarded, failed).",
		}, []string{"result"}),
		appliedSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_applied_sequence",
			Help: "Sequence number of the dashboard currently served.",
		}),
		slaCompliance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_sla_compliance_percent",
			Help: "SLA compliance KPI of the dashboard currently served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.generationsTotal,
		m.generationDuration,
		m.refreshesTotal,
		m.appliedSequence,
		m.slaCompliance,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// WrapHandler records request count and latency for a route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SnapshotGenerated records one generation attempt
func (m *Metrics) SnapshotGenerated(source string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.generationsTotal.WithLabelValues(source, outcome).Inc()
	m.generationDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// Refresh records the result of a sequenced refresh
func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(result).Inc()
}

// DashboardApplied records the dashboard now being served
func (m *Metrics) DashboardApplied(sequence uint64, slaCompliance float64) {
	if m == nil {
		return
	}
	m.appliedSequence.Set(float64(sequence))
	m.slaCompliance.Set(slaCompliance)
}
