// Package metrics provides Prometheus metrics for uploads, media compression,
// blob storage and the query cache.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racingnotes"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics contains every collector exported by the server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal       *prometheus.CounterVec
	uploadBytesTotal   *prometheus.CounterVec
	compressionTotal   *prometheus.CounterVec
	compressionSeconds *prometheus.HistogramVec
	compressionRatio   *prometheus.HistogramVec
	storageOpsTotal    *prometheus.CounterVec
	storageOpSeconds   *prometheus.HistogramVec
	cacheRequestsTotal *prometheus.CounterVec
	pendingDeletions   prometheus.Gauge
	sweepRemovedTotal  prometheus.Counter
	readModelRefreshes *prometheus.CounterVec
}

// New creates a registry with process/Go collectors and registers all metrics.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}

	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Media files received for upload",
		},
		[]string{"media_type", "status"},
	)

	m.uploadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes stored after compression",
		},
		[]string{"media_type"},
	)

	m.compressionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_total",
			Help:      "Compression attempts",
		},
		[]string{"media_type", "status"},
	)

	m.compressionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_duration_seconds",
			Help:      "Time spent compressing a single file",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"media_type"},
	)

	m.compressionRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_ratio",
			Help:      "Output size divided by input size",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"media_type"},
	)

	m.storageOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Blob storage operations",
		},
		[]string{"backend", "operation", "status"},
	)

	m.storageOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Blob storage operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"backend", "operation"},
	)

	m.cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by namespace and result",
		},
		[]string{"namespace", "result"}, // result: hit, miss
	)

	m.pendingDeletions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_blob_deletions",
		Help:      "Blob deletions waiting for retry after the last sweep",
	})

	m.sweepRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_removed_blobs_total",
		Help:      "Blobs removed by the reconciliation sweeper",
	})

	m.readModelRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_model_refreshes_total",
			Help:      "Read model rebuilds",
		},
		[]string{"status"},
	)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.uploadsTotal,
		m.uploadBytesTotal,
		m.compressionTotal,
		m.compressionSeconds,
		m.compressionRatio,
		m.storageOpsTotal,
		m.storageOpSeconds,
		m.cacheRequestsTotal,
		m.pendingDeletions,
		m.sweepRemovedTotal,
		m.readModelRefreshes,
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(logger.Handler(), slog.LevelError),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordUpload counts one received file and, on success, the stored bytes.
func (m *Metrics) RecordUpload(mediaType string, storedBytes int64, err error) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(mediaType, status(err)).Inc()
	if err == nil && storedBytes > 0 {
		m.uploadBytesTotal.WithLabelValues(mediaType).Add(float64(storedBytes))
	}
}

// ObserveCompression records one compression attempt.
func (m *Metrics) ObserveCompression(mediaType string, d time.Duration, inBytes, outBytes int64, err error) {
	if m == nil {
		return
	}
	m.compressionTotal.WithLabelValues(mediaType, status(err)).Inc()
	if err != nil {
		return
	}
	m.compressionSeconds.WithLabelValues(mediaType).Observe(d.Seconds())
	if inBytes > 0 {
		m.compressionRatio.WithLabelValues(mediaType).Observe(float64(outBytes) / float64(inBytes))
	}
}

// ObserveStorage records one blob storage call.
func (m *Metrics) ObserveStorage(backend, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.storageOpsTotal.WithLabelValues(backend, operation, status(err)).Inc()
	m.storageOpSeconds.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit(ns string) {
	if m == nil {
		return
	}
	m.cacheRequestsTotal.WithLabelValues(ns, "hit").Inc()
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss(ns string) {
	if m == nil {
		return
	}
	m.cacheRequestsTotal.WithLabelValues(ns, "miss").Inc()
}

// RecordSweep records the outcome of a reconciliation sweep.
func (m *Metrics) RecordSweep(removed, pending int) {
	if m == nil {
		return
	}
	m.sweepRemovedTotal.Add(float64(removed))
	m.pendingDeletions.Set(float64(pending))
}

// RecordRefresh counts a read model rebuild.
func (m *Metrics) RecordRefresh(err error) {
	if m == nil {
		return
	}
	m.readModelRefreshes.WithLabelValues(status(err)).Inc()
}
