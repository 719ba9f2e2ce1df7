// Package metrics provides Prometheus metrics for the build aggregation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Upstream client metrics
	matchesFetched  prometheus.Counter
	matchesNotFound prometheus.Counter
	rateLimitWaits  prometheus.Counter
	upstreamRetries prometheus.Counter
	fetchLatency    prometheus.Histogram

	// Extraction metrics
	matchesSkipped prometheus.Counter
	matchesDeduped prometheus.Counter

	// Merge metrics
	observationsMerged *prometheus.CounterVec
	mergeLatency       prometheus.Histogram

	// Publish / run metrics
	scopePublishes  prometheus.Counter
	publishLatency  prometheus.Histogram
	runsStarted     prometheus.Counter
	runsFailed      prometheus.Counter
	runsRejected    prometheus.Counter
	runsInFlight    prometheus.Gauge

	// LP tracker metrics
	lpSamplesRecorded prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "riftstats",
		subsystem:        "aggregation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.matchesFetched = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_fetched_total",
		Help: "Match detail payloads fetched from the upstream API.",
	})
	m.matchesNotFound = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_not_found_total",
		Help: "Match detail requests that returned not-found.",
	})
	m.rateLimitWaits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rate_limit_waits_total",
		Help: "Backoff waits caused by upstream rate limiting.",
	})
	m.upstreamRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "upstream_retries_total",
		Help: "Retries of transient upstream failures.",
	})
	m.fetchLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "fetch_latency_ms",
		Help:    "Latency of upstream fetches in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.matchesSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_skipped_total",
		Help: "Matches skipped during extraction (malformed or out of scope).",
	})
	m.matchesDeduped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "matches_deduped_total",
		Help: "Matches skipped because their id was already processed.",
	})

	m.observationsMerged = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "observations_merged_total",
		Help: "Build observations folded into a statistic store.",
	}, []string{"store"})
	m.mergeLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "merge_latency_ms",
		Help:    "Latency of a single observation merge in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.scopePublishes = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scope_publishes_total",
		Help: "Atomic scope replacements committed by full recomputes.",
	})
	m.publishLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "publish_latency_ms",
		Help:    "Latency of publishing a recomputed scope in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.runsStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_started_total",
		Help: "Aggregation runs started.",
	})
	m.runsFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_failed_total",
		Help: "Aggregation runs that terminated in a failed state.",
	})
	m.runsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_rejected_total",
		Help: "Run triggers rejected because the scope was already in flight.",
	})
	m.runsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_in_flight",
		Help: "Aggregation runs currently executing.",
	})

	m.lpSamplesRecorded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "lp_samples_recorded_total",
		Help: "LP snapshots appended to the trajectory store.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http",
		Name:    "request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_total",
		Help: "Errors by component and kind.",
	}, []string{"component", "kind"})
}

// Package-level helpers operating on the global manager.

func RecordMatchFetched() {
	if globalManager.enabled {
		globalManager.matchesFetched.Inc()
	}
}

func RecordMatchNotFound() {
	if globalManager.enabled {
		globalManager.matchesNotFound.Inc()
	}
}

func RecordRateLimitWait() {
	if globalManager.enabled {
		globalManager.rateLimitWaits.Inc()
	}
}

func RecordUpstreamRetry() {
	if globalManager.enabled {
		globalManager.upstreamRetries.Inc()
	}
}

func RecordFetchLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.fetchLatency.Observe(latencyMs)
	}
}

func RecordMatchSkipped() {
	if globalManager.enabled {
		globalManager.matchesSkipped.Inc()
	}
}

func RecordMatchDeduped() {
	if globalManager.enabled {
		globalManager.matchesDeduped.Inc()
	}
}

func RecordObservationMerged(store string) {
	if globalManager.enabled {
		globalManager.observationsMerged.WithLabelValues(store).Inc()
	}
}

func RecordMergeLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.mergeLatency.Observe(latencyMs)
	}
}

func RecordScopePublish() {
	if globalManager.enabled {
		globalManager.scopePublishes.Inc()
	}
}

func RecordPublishLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.publishLatency.Observe(latencyMs)
	}
}

func RecordRunStarted() {
	if globalManager.enabled {
		globalManager.runsStarted.Inc()
		globalManager.runsInFlight.Inc()
	}
}

func RecordRunFinished() {
	if globalManager.enabled {
		globalManager.runsInFlight.Dec()
	}
}

func RecordRunFailed() {
	if globalManager.enabled {
		globalManager.runsFailed.Inc()
	}
}

func RecordRunRejected() {
	if globalManager.enabled {
		globalManager.runsRejected.Inc()
	}
}

func RecordLpSample() {
	if globalManager.enabled {
		globalManager.lpSamplesRecorded.Inc()
	}
}

func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
	}
}

func RecordError(component, kind string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
	}
}

// GetRegistry returns the registry backing the global manager, for serving /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
