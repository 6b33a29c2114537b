package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Quiz submission modes reported to metrics.
const (
	SubmissionManual = "manual"
	SubmissionAuto   = "auto"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is a no-op.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	quizSubmissions  *prometheus.CounterVec
	activeAttempts   prometheus.Gauge
	storeFailures    *prometheus.CounterVec
	generationRuns   *prometheus.CounterVec
	remoteCallErrors *prometheus.CounterVec
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	quizSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_submissions_total",
		Help: "Quiz attempts finalised, by submission mode",
	}, []string{"mode"})

	activeAttempts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_active_attempts",
		Help: "Quiz attempts currently in progress",
	})

	storeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_store_save_failures_total",
		Help: "Failed record collection saves, by key",
	}, []string{"key"})

	generationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_generation_runs_total",
		Help: "Exercise generation runs, by outcome",
	}, []string{"outcome"})

	remoteCallErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_call_errors_total",
		Help: "Failed calls to remote collaborators",
	}, []string{"target"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		quizSubmissions, activeAttempts, storeFailures, generationRuns, remoteCallErrors, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		quizSubmissions:  quizSubmissions,
		activeAttempts:   activeAttempts,
		storeFailures:    storeFailures,
		generationRuns:   generationRuns,
		remoteCallErrors: remoteCallErrors,
	}
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordQuizSubmission counts a finalised attempt.
func (m *MetricsService) RecordQuizSubmission(mode string) {
	if m == nil {
		return
	}
	m.quizSubmissions.WithLabelValues(mode).Inc()
}

// SetActiveAttempts reports the number of running attempts.
func (m *MetricsService) SetActiveAttempts(n int) {
	if m == nil {
		return
	}
	m.activeAttempts.Set(float64(n))
}

// RecordStoreFailure counts a failed save of key.
func (m *MetricsService) RecordStoreFailure(key string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(key).Inc()
}

// RecordGeneration counts an exercise generation outcome.
func (m *MetricsService) RecordGeneration(outcome string) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(outcome).Inc()
}

// RecordRemoteError counts a failed call to target.
func (m *MetricsService) RecordRemoteError(target string) {
	if m == nil {
		return
	}
	m.remoteCallErrors.WithLabelValues(target).Inc()
}
