// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_relay_bot"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Inbound updates
	UpdatesReceived *prometheus.CounterVec

	// Job metrics
	JobsInFlight  prometheus.Gauge
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Pipeline stage metrics
	RetryAttempts        *prometheus.CounterVec
	DownloadBytes        prometheus.Counter
	ExtractionFailures   *prometheus.CounterVec
	TranscriptionLatency prometheus.Histogram
	TranscriptionErrors  *prometheus.CounterVec

	// Delivery metrics
	RepliesSent      *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_received_total",
			Help:      "Total number of inbound platform events by kind",
		}, []string{"kind"}),

		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Number of voice/audio jobs currently being processed",
		}),
		JobsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs answered with a transcript",
		}, []string{"kind"}),
		JobsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that ended in the failure reply",
		}, []string{"kind", "stage"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End-to-end processing time of a job",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"kind", "outcome"}),

		RetryAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Total number of failed attempts that were retried or exhausted",
		}, []string{"operation"}),
		DownloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes downloaded from the chat platform",
		}),
		ExtractionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Total number of media extraction failures by reason",
		}, []string{"reason"}),
		TranscriptionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Latency of a single transcription backend call",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}),
		TranscriptionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of transcription backend errors",
		}, []string{"provider", "error_type"}),

		RepliesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_sent_total",
			Help:      "Total number of messages sent back to chats",
		}, []string{"type"}),
		DeliveryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Total number of messages that could not be delivered",
		}, []string{"type"}),

		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordUpdate records an inbound platform event.
func (m *Metrics) RecordUpdate(kind string) {
	m.UpdatesReceived.WithLabelValues(kind).Inc()
}

// RecordJobStart records a job entering the pipeline.
func (m *Metrics) RecordJobStart() {
	m.JobsInFlight.Inc()
}

// RecordJobEnd records a job leaving the pipeline. stage is empty on success.
func (m *Metrics) RecordJobEnd(kind, stage string, durationSeconds float64) {
	m.JobsInFlight.Dec()
	if stage == "" {
		m.JobsCompleted.WithLabelValues(kind).Inc()
		m.JobDuration.WithLabelValues(kind, "success").Observe(durationSeconds)
		return
	}
	m.JobsFailed.WithLabelValues(kind, stage).Inc()
	m.JobDuration.WithLabelValues(kind, "failure").Observe(durationSeconds)
}

// RecordRetry records a failed attempt of a retried operation.
func (m *Metrics) RecordRetry(operation string) {
	m.RetryAttempts.WithLabelValues(operation).Inc()
}

// RecordDownload records bytes fetched from the platform.
func (m *Metrics) RecordDownload(bytes int) {
	m.DownloadBytes.Add(float64(bytes))
}

// RecordExtractionFailure records a media extraction failure.
func (m *Metrics) RecordExtractionFailure(reason string) {
	m.ExtractionFailures.WithLabelValues(reason).Inc()
}

// RecordTranscription records the latency of one backend call and its error, if any.
func (m *Metrics) RecordTranscription(provider, errorType string, latencySeconds float64) {
	m.TranscriptionLatency.Observe(latencySeconds)
	if errorType != "" {
		m.TranscriptionErrors.WithLabelValues(provider, errorType).Inc()
	}
}

// RecordReply records a reply send attempt.
func (m *Metrics) RecordReply(replyType string, err error) {
	if err != nil {
		m.DeliveryFailures.WithLabelValues(replyType).Inc()
		return
	}
	m.RepliesSent.WithLabelValues(replyType).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
