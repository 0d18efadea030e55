// Package metrics provides Prometheus metrics for the scorekeep service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Business
	scoresSubmitted *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	compensations   *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec
	rateLimiterErrors   prometheus.Counter

	// Collaborators
	collaboratorLatency *prometheus.HistogramVec
	collaboratorErrors  *prometheus.CounterVec

	// Cleanup pipeline
	cleanupQueueSize     prometheus.Gauge
	cleanupQueueCapacity prometheus.Gauge
	cleanupJobs          *prometheus.CounterVec
	workerCount          prometheus.Gauge

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps Go runtime collectors out of /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scorekeep",
		subsystem:        "api",
		histogramBuckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.scoresSubmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scores_submitted_total",
		Help:        "Score submissions by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.registrations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registrations_total",
		Help:        "Registration attempts by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.logins = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "logins_total",
		Help:        "Login attempts by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.compensations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "identity_compensations_total",
		Help:        "Compensating identity deletions after failed account writes",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limited_total",
		Help:        "Requests rejected by admission control",
		ConstLabels: m.constLabels,
	}, []string{"driver"})

	m.rateLimiterErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limiter_errors_total",
		Help:        "Limiter backend failures (requests were admitted)",
		ConstLabels: m.constLabels,
	})

	m.collaboratorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "collaborator_latency_milliseconds",
		Help:        "Latency of document store and identity provider calls",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"collaborator", "operation"})

	m.collaboratorErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "collaborator_errors_total",
		Help:        "Failed document store and identity provider calls",
		ConstLabels: m.constLabels,
	}, []string{"collaborator", "operation"})

	m.cleanupQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cleanup_queue_size",
		Help:        "Orphaned identities waiting for deletion",
		ConstLabels: m.constLabels,
	})

	m.cleanupQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cleanup_queue_capacity",
		Help:        "Capacity of the orphan cleanup queue",
		ConstLabels: m.constLabels,
	})

	m.cleanupJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cleanup_jobs_total",
		Help:        "Orphan cleanup jobs by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cleanup_worker_count",
		Help:        "Running orphan cleanup workers",
		ConstLabels: m.constLabels,
	})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: m.constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Errors by endpoint, method and type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: m.constLabels,
	})
}

// RecordScoreSubmitted counts a /score outcome (stored, invalid, unauthorized, error).
func RecordScoreSubmitted(outcome string) {
	globalManager.scoresSubmitted.WithLabelValues(outcome).Inc()
}

// RecordRegistration counts a /register outcome.
func RecordRegistration(outcome string) {
	globalManager.registrations.WithLabelValues(outcome).Inc()
}

// RecordLogin counts a /login outcome.
func RecordLogin(outcome string) {
	globalManager.logins.WithLabelValues(outcome).Inc()
}

// RecordCompensation counts what happened to an identity orphaned by a failed account write.
func RecordCompensation(result string) {
	globalManager.compensations.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(driver string) {
	globalManager.rateLimited.WithLabelValues(driver).Inc()
}

// RecordRateLimiterError counts a limiter backend failure.
func RecordRateLimiterError() {
	globalManager.rateLimiterErrors.Inc()
}

// RecordCollaboratorCall observes the latency of a collaborator call and counts failures.
func RecordCollaboratorCall(collaborator, operation string, latencyMs float64, err error) {
	globalManager.collaboratorLatency.WithLabelValues(collaborator, operation).Observe(latencyMs)
	if err != nil {
		globalManager.collaboratorErrors.WithLabelValues(collaborator, operation).Inc()
	}
}

// UpdateCleanupQueueSize sets the number of queued cleanup jobs.
func UpdateCleanupQueueSize(size int) {
	globalManager.cleanupQueueSize.Set(float64(size))
}

// UpdateCleanupQueueCapacity sets the cleanup queue capacity.
func UpdateCleanupQueueCapacity(capacity int) {
	globalManager.cleanupQueueCapacity.Set(float64(capacity))
}

// RecordCleanupJob counts a cleanup job result (deleted, retried, dropped, rejected).
func RecordCleanupJob(result string) {
	globalManager.cleanupJobs.WithLabelValues(result).Inc()
}

// UpdateWorkerCount sets the number of cleanup workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
