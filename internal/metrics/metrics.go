package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission results
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds the registry's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	Submissions   *prometheus.CounterVec
	UploadedFiles *prometheus.CounterVec
	UploadedBytes prometheus.Counter
	HTTPDuration  *prometheus.HistogramVec
}

// New registers all collectors, plus the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "submissions_total",
			Help:      "Project submissions by type and result.",
		}, []string{"type", "result"}),
		UploadedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "uploaded_files_total",
			Help:      "Evidence files stored, by kind.",
		}, []string{"kind"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "registry",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes of evidence written to disk.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "registry",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.Submissions,
		m.UploadedFiles,
		m.UploadedBytes,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and gatherers
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSubmission counts one submission attempt
func (m *Metrics) ObserveSubmission(projectType, result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(projectType, result).Inc()
}

// ObserveFile counts one stored evidence file
func (m *Metrics) ObserveFile(kind string, size int64) {
	if m == nil {
		return
	}
	m.UploadedFiles.WithLabelValues(kind).Inc()
	m.UploadedBytes.Add(float64(size))
}
