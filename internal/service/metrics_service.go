package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric label values.
const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultNotFound = "not_found"
	resultRejected = "rejected"

	deletionSourceClaim   = "claim"
	deletionSourceSweep   = "sweep"
	deletionSourceCompens = "compensation"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	claims          *prometheus.CounterVec
	blobDeletions   *prometheus.CounterVec
	sweepRuns       prometheus.Counter
	sweepDuration   prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vapor_uploads_total",
		Help: "Upload attempts by outcome",
	}, []string{"result"})

	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vapor_claims_total",
		Help: "Claim attempts by outcome",
	}, []string{"result"})

	blobDeletions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vapor_blob_deletions_total",
		Help: "Blob deletions by trigger and outcome",
	}, []string{"source", "result"})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vapor_sweep_runs_total",
		Help: "Completed cleanup sweeps",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vapor_sweep_duration_seconds",
		Help:    "Duration of cleanup sweeps",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, uploads, claims, blobDeletions, sweepRuns, sweepDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		uploads:         uploads,
		claims:          claims,
		blobDeletions:   blobDeletions,
		sweepRuns:       sweepRuns,
		sweepDuration:   sweepDuration,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordUpload counts an upload outcome.
func (m *MetricsService) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

// RecordClaim counts a claim outcome.
func (m *MetricsService) RecordClaim(result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(result).Inc()
}

// RecordBlobDeletion counts a blob deletion by trigger.
func (m *MetricsService) RecordBlobDeletion(source string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.blobDeletions.WithLabelValues(source, result).Inc()
}

// ObserveSweep records one completed sweep.
func (m *MetricsService) ObserveSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepDuration.Observe(duration.Seconds())
}
