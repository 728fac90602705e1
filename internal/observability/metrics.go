// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelbatch"

// Metrics holds all application metrics, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Batch metrics
	BatchesCreated   prometheus.Counter
	BatchesCompleted prometheus.Counter
	BatchesFailed    prometheus.Counter
	BatchesInFlight  prometheus.Gauge
	BatchDuration    prometheus.Histogram

	// Item metrics
	ItemsSucceeded prometheus.Counter
	ItemsFailed    prometheus.Counter
	ItemsDegraded  prometheus.Counter

	// Retriever metrics
	RetrieverRequestsTotal *prometheus.CounterVec
	RetrieverErrors        *prometheus.CounterVec

	// Archive metrics
	ArchivesCreated prometheus.Counter
	ArchiveBytes    prometheus.Counter

	// Storage metrics
	CleanupBatchesTotal prometheus.Counter
	CleanupFilesTotal   prometheus.Counter
	StoredBatchesTotal  prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		BatchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "created_total",
			Help:      "Total number of batches accepted",
		}),
		BatchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "completed_total",
			Help:      "Total number of batches that finished with a report",
		}),
		BatchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "failed_total",
			Help:      "Total number of batches that died before delivery",
		}),
		BatchesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "in_flight",
			Help:      "Number of batches currently queued or running",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batches",
			Name:      "duration_seconds",
			Help:      "Histogram of whole-batch processing duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		ItemsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "succeeded_total",
			Help:      "Total number of items that produced an output file",
		}),
		ItemsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "failed_total",
			Help:      "Total number of items recorded as failures",
		}),
		ItemsDegraded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "degraded_total",
			Help:      "Total number of items delivered untranscoded after an encoder failure",
		}),

		RetrieverRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retriever",
			Name:      "requests_total",
			Help:      "Total number of retrieval requests",
		}, []string{"retriever", "status"}),
		RetrieverErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retriever",
			Name:      "errors_total",
			Help:      "Total number of retrieval errors",
		}, []string{"retriever", "error_type"}),

		ArchivesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "created_total",
			Help:      "Total number of archives written",
		}),
		ArchiveBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "bytes_total",
			Help:      "Total bytes written into archives",
		}),

		CleanupBatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "cleanup_batches_total",
			Help:      "Total number of expired batches cleaned up",
		}),
		CleanupFilesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "cleanup_files_total",
			Help:      "Total number of expired files and directories removed",
		}),
		StoredBatchesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batches_current",
			Help:      "Current number of stored batches",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns the Prometheus HTTP handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BatchTimer returns a function to record batch duration.
func (m *Metrics) BatchTimer() func() {
	start := time.Now()

	return func() {
		m.BatchDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordBatchCreated increments the batches created counter.
func (m *Metrics) RecordBatchCreated() {
	m.BatchesCreated.Inc()
	m.BatchesInFlight.Inc()
}

// RecordBatchCompleted records a finished batch.
func (m *Metrics) RecordBatchCompleted() {
	m.BatchesCompleted.Inc()
	m.BatchesInFlight.Dec()
}

// RecordBatchFailed records a batch that died before delivery.
func (m *Metrics) RecordBatchFailed() {
	m.BatchesFailed.Inc()
	m.BatchesInFlight.Dec()
}

// RecordItemOutcome records one item's outcome.
func (m *Metrics) RecordItemOutcome(succeeded, degraded bool) {
	switch {
	case succeeded && degraded:
		m.ItemsSucceeded.Inc()
		m.ItemsDegraded.Inc()
	case succeeded:
		m.ItemsSucceeded.Inc()
	default:
		m.ItemsFailed.Inc()
	}
}

// RecordRetrieverRequest records a retrieval request.
func (m *Metrics) RecordRetrieverRequest(retriever, status string) {
	m.RetrieverRequestsTotal.WithLabelValues(retriever, status).Inc()
}

// RecordRetrieverError records a retrieval error.
func (m *Metrics) RecordRetrieverError(retriever, errorType string) {
	m.RetrieverErrors.WithLabelValues(retriever, errorType).Inc()
}

// RecordArchive records a written archive and its size.
func (m *Metrics) RecordArchive(bytes int64) {
	m.ArchivesCreated.Inc()
	m.ArchiveBytes.Add(float64(bytes))
}

// RecordCleanup records cleanup totals.
func (m *Metrics) RecordCleanup(batches, files int) {
	m.CleanupBatchesTotal.Add(float64(batches))
	m.CleanupFilesTotal.Add(float64(files))
}

// SetStoredBatches sets the number of stored batches.
func (m *Metrics) SetStoredBatches(count int) {
	m.StoredBatchesTotal.Set(float64(count))
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
