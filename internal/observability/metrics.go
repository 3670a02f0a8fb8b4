package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jittakal/tsdbbuffer/pkg/queue"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	factory promauto.Factory

	// Ingest metrics
	PointsAccepted *prometheus.CounterVec
	PointsRejected *prometheus.CounterVec

	// Dispatch metrics
	BatchesWritten     *prometheus.CounterVec
	BatchSize          *prometheus.HistogramVec
	SinkWriteDuration  *prometheus.HistogramVec
	SinkRetries        *prometheus.CounterVec
	PointsDropped      *prometheus.CounterVec
	BackpressurePauses *prometheus.CounterVec

	// Kafka sink metrics
	MessagesProduced *prometheus.CounterVec

	// Storage metrics
	FilesWritten      *prometheus.CounterVec
	FileWriteDuration *prometheus.HistogramVec
	FileSize          *prometheus.HistogramVec
	StorageErrors     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		factory: factory,

		// Ingest metrics
		PointsAccepted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_points_accepted_total",
				Help: "Total number of points accepted into the queue",
			},
			[]string{"stream", "source"},
		),
		PointsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_points_rejected_total",
				Help: "Total number of points rejected before entering the queue",
			},
			[]string{"stream", "reason"},
		),

		// Dispatch metrics
		BatchesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_batches_written_total",
				Help: "Total number of batches handed to the sink",
			},
			[]string{"sink", "stream", "status"},
		),
		BatchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tsdbbuffer_batch_size_points",
				Help:    "Number of points per dispatched batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to 8192
			},
			[]string{"stream"},
		),
		SinkWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tsdbbuffer_sink_write_duration_seconds",
				Help:    "Duration of sink write operations including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink", "stream"},
		),
		SinkRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_sink_retries_total",
				Help: "Total number of sink write retries",
			},
			[]string{"sink", "stream"},
		),
		PointsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_points_dropped_total",
				Help: "Total number of points dropped after a permanent sink failure",
			},
			[]string{"sink", "stream"},
		),
		BackpressurePauses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_backpressure_pauses_total",
				Help: "Total number of times producers were paused by sink backpressure",
			},
			[]string{"sink"},
		),

		// Kafka sink metrics
		MessagesProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_kafka_messages_produced_total",
				Help: "Total number of messages produced to Kafka",
			},
			[]string{"topic", "status"},
		),

		// Storage metrics
		FilesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_files_written_total",
				Help: "Total number of files written to storage",
			},
			[]string{"stream", "format", "status"},
		),
		FileWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tsdbbuffer_file_write_duration_seconds",
				Help:    "Duration of file write operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "format"},
		),
		FileSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tsdbbuffer_file_size_bytes",
				Help:    "Size of files written to storage",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to 256MB
			},
			[]string{"stream", "format"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsdbbuffer_storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "error_type"},
		),
	}
}

// RegisterQueue exposes queue occupancy and flags as gauges evaluated at
// scrape time.
func (m *Metrics) RegisterQueue(stats func() queue.Stats) {
	streamGauge := func(name, help, stream string, value func(queue.Stats) int) {
		m.factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        name,
				Help:        help,
				ConstLabels: prometheus.Labels{"stream": stream},
			},
			func() float64 { return float64(value(stats())) },
		)
	}

	streamGauge("tsdbbuffer_queue_points", "Current number of buffered points", "points",
		func(s queue.Stats) int { return s.Points })
	streamGauge("tsdbbuffer_queue_points", "Current number of buffered points", "multi_field",
		func(s queue.Stats) int { return s.MultiField })
	streamGauge("tsdbbuffer_queue_capacity", "Configured queue capacity", "points",
		func(s queue.Stats) int { return s.PointCapacity })
	streamGauge("tsdbbuffer_queue_capacity", "Configured queue capacity", "multi_field",
		func(s queue.Stats) int { return s.MultiFieldCapacity })

	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tsdbbuffer_queue_paused",
			Help: "Whether producers are currently paused (1) or not (0)",
		},
		func() float64 { return boolToFloat(stats().Paused) },
	)
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tsdbbuffer_queue_send_forbidden",
			Help: "Whether the queue rejects new points (1) or not (0)",
		},
		func() float64 { return boolToFloat(stats().SendForbidden) },
	)
}

// IncPointsAccepted increments accepted points counter.
func (m *Metrics) IncPointsAccepted(stream, source string, n int) {
	m.PointsAccepted.WithLabelValues(stream, source).Add(float64(n))
}

// IncPointsRejected increments rejected points counter.
func (m *Metrics) IncPointsRejected(stream, reason string, n int) {
	m.PointsRejected.WithLabelValues(stream, reason).Add(float64(n))
}

// IncBatchesWritten increments batches written counter.
func (m *Metrics) IncBatchesWritten(sink, stream, status string) {
	m.BatchesWritten.WithLabelValues(sink, stream, status).Inc()
}

// ObserveBatchSize observes batch size.
func (m *Metrics) ObserveBatchSize(stream string, size int) {
	m.BatchSize.WithLabelValues(stream).Observe(float64(size))
}

// ObserveSinkWriteDuration observes sink write duration.
func (m *Metrics) ObserveSinkWriteDuration(sink, stream string, duration float64) {
	m.SinkWriteDuration.WithLabelValues(sink, stream).Observe(duration)
}

// IncSinkRetries increments sink retries counter.
func (m *Metrics) IncSinkRetries(sink, stream string) {
	m.SinkRetries.WithLabelValues(sink, stream).Inc()
}

// IncPointsDropped increments dropped points counter.
func (m *Metrics) IncPointsDropped(sink, stream string, n int) {
	m.PointsDropped.WithLabelValues(sink, stream).Add(float64(n))
}

// IncBackpressurePauses increments backpressure pauses counter.
func (m *Metrics) IncBackpressurePauses(sink string) {
	m.BackpressurePauses.WithLabelValues(sink).Inc()
}

// IncMessagesProduced increments messages produced counter.
func (m *Metrics) IncMessagesProduced(topic, status string, n int) {
	m.MessagesProduced.WithLabelValues(topic, status).Add(float64(n))
}

// IncFilesWritten increments files written counter.
func (m *Metrics) IncFilesWritten(stream, format, status string) {
	m.FilesWritten.WithLabelValues(stream, format, status).Inc()
}

// ObserveFileWriteDuration observes file write duration.
func (m *Metrics) ObserveFileWriteDuration(backend, format string, duration float64) {
	m.FileWriteDuration.WithLabelValues(backend, format).Observe(duration)
}

// ObserveFileSize observes file size.
func (m *Metrics) ObserveFileSize(stream, format string, size float64) {
	m.FileSize.WithLabelValues(stream, format).Observe(size)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
