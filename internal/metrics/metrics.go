// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors bound to one registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ExtractionsTotal    *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	RecoveryRungs       *prometheus.CounterVec
	JobsInFlight        prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		ExtractionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Extraction runs by content source and outcome.",
		}, []string{"source", "outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "extraction_stage_duration_seconds",
			Help:    "Duration of extraction pipeline stages.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		RecoveryRungs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_recovery_rung_total",
			Help: "Model outputs by the recovery ladder rung that parsed them.",
		}, []string{"rung"}),
		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "extraction_jobs_in_flight",
			Help: "Asynchronous extraction jobs currently running.",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CountExtraction records one finished run.
func (m *Metrics) CountExtraction(source, outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(source, outcome).Inc()
}

// CountRung records which recovery rung parsed a model response.
func (m *Metrics) CountRung(rung string) {
	if m == nil {
		return
	}
	m.RecoveryRungs.WithLabelValues(rung).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// JobStarted and JobFinished track in-flight asynchronous jobs.
func (m *Metrics) JobStarted() {
	if m != nil {
		m.JobsInFlight.Inc()
	}
}

func (m *Metrics) JobFinished() {
	if m != nil {
		m.JobsInFlight.Dec()
	}
}
