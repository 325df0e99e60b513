// Package metrics provides Prometheus metrics for the mapboard tracker.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tracker.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Sync Metrics - one run walks every registry map
	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	syncInProgress  prometheus.Gauge
	syncLastUnix    prometheus.Gauge
	mapSyncs        *prometheus.CounterVec
	mapSyncDuration prometheus.Histogram
	syncEvents      *prometheus.CounterVec

	// Upstream API Metrics - leaderboard page requests
	apiRequests        *prometheus.CounterVec
	apiRequestDuration prometheus.Histogram
	recordsFetched     prometheus.Counter
	entriesDropped     prometheus.Counter

	// Tracked Data Metrics
	trackedMaps    prometheus.Gauge
	trackedPlayers prometheus.Gauge
	trackedRecords prometheus.Gauge

	// Repository Metrics
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// View Cache Metrics
	cacheLookups *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mapboard",
		subsystem:        "tracker",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.syncRuns = m.counterVec("sync_runs_total", "Total number of sync runs by result", "result")
	m.syncDuration = m.histogram("sync_duration_seconds", "Duration of a full sync run in seconds",
		[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600})
	m.syncInProgress = m.gauge("sync_in_progress", "1 while a sync run is executing")
	m.syncLastUnix = m.gauge("sync_last_success_unix", "Unix timestamp of the last completed sync run")
	m.mapSyncs = m.counterVec("map_syncs_total", "Total number of map syncs by result", "result")
	m.mapSyncDuration = m.histogram("map_sync_duration_seconds", "Duration of fetching and storing one map in seconds",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300})
	m.syncEvents = m.counterVec("sync_events_total", "Changes detected while applying leaderboards", "kind")

	m.apiRequests = m.counterVec("api_requests_total", "Leaderboard API page requests by outcome", "outcome")
	m.apiRequestDuration = m.histogram("api_request_duration_milliseconds",
		"Leaderboard API page request latency in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
	m.recordsFetched = m.counter("records_fetched_total", "Total leaderboard entries fetched from the API")
	m.entriesDropped = m.counter("entries_dropped_total", "Entries dropped for a missing or duplicate player id")

	m.trackedMaps = m.gauge("tracked_maps", "Number of maps in the local store")
	m.trackedPlayers = m.gauge("tracked_players", "Number of players in the local store")
	m.trackedRecords = m.gauge("tracked_records", "Number of records in the local store")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds",
		"Latency of applying one leaderboard to the store in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Repository read query latency in milliseconds", m.histogramBuckets)

	m.cacheLookups = m.counterVec("cache_lookups_total", "View cache lookups by result", "result")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Sync Metrics Functions.

// RecordSyncRun records a finished sync run.
func RecordSyncRun(result string, seconds float64) {
	globalManager.syncRuns.WithLabelValues(result).Inc()
	globalManager.syncDuration.Observe(seconds)
}

// SetSyncInProgress flips the in-progress gauge.
func SetSyncInProgress(running bool) {
	if running {
		globalManager.syncInProgress.Set(1)
		return
	}
	globalManager.syncInProgress.Set(0)
}

// UpdateSyncLastSuccess sets the time of the last completed run.
func UpdateSyncLastSuccess(unix int64) {
	globalManager.syncLastUnix.Set(float64(unix))
}

// RecordMapSync records the outcome of one map.
func RecordMapSync(result string, seconds float64) {
	globalManager.mapSyncs.WithLabelValues(result).Inc()
	globalManager.mapSyncDuration.Observe(seconds)
}

// RecordSyncEvents adds n detected changes of the given kind.
func RecordSyncEvents(kind string, n int) {
	if n > 0 {
		globalManager.syncEvents.WithLabelValues(kind).Add(float64(n))
	}
}

// Upstream API Metrics Functions.

// RecordAPIRequest records one leaderboard page request.
func RecordAPIRequest(outcome string, latencyMs float64) {
	globalManager.apiRequests.WithLabelValues(outcome).Inc()
	globalManager.apiRequestDuration.Observe(latencyMs)
}

// RecordRecordsFetched adds fetched leaderboard entries.
func RecordRecordsFetched(n int) {
	globalManager.recordsFetched.Add(float64(n))
}

// RecordEntriesDropped adds entries discarded during a fetch.
func RecordEntriesDropped(n int) {
	if n > 0 {
		globalManager.entriesDropped.Add(float64(n))
	}
}

// UpdateTrackedTotals sets the store size gauges.
func UpdateTrackedTotals(maps, players, records int) {
	globalManager.trackedMaps.Set(float64(maps))
	globalManager.trackedPlayers.Set(float64(players))
	globalManager.trackedRecords.Set(float64(records))
}

// Repository Metrics Functions.

// RecordRepositoryUpdateLatency records the latency of applying one snapshot.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordCacheLookup records a view cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		globalManager.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	globalManager.cacheLookups.WithLabelValues("miss").Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// CollectSystem samples memory and goroutine gauges.
func CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapInuse))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
