package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed tracks records attempted per site
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_records_processed_total",
			Help: "Total number of records processed",
		},
		[]string{"site"},
	)

	// RecordsPersisted tracks records successfully written to storage
	RecordsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_records_persisted_total",
			Help: "Total number of records persisted",
		},
		[]string{"site"},
	)

	// AnomaliesDetected tracks anomalies per site and reason
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_anomalies_detected_total",
			Help: "Total number of anomalies detected",
		},
		[]string{"site", "reason"},
	)

	// ValidationFailures tracks structurally invalid batch elements
	ValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridpulse_validation_failures_total",
			Help: "Total number of record validation failures",
		},
	)

	// DownstreamRetries tracks retry attempts per resource
	DownstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_downstream_retries_total",
			Help: "Total number of downstream call retries",
		},
		[]string{"resource"},
	)

	// DownstreamErrors tracks failed downstream attempts per resource and kind
	DownstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_downstream_errors_total",
			Help: "Total number of failed downstream attempts",
		},
		[]string{"resource", "kind"},
	)

	// BreakerState exposes circuit state per resource (0=closed, 1=half-open, 2=open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridpulse_breaker_state",
			Help: "Circuit breaker state per resource (0=closed, 1=half-open, 2=open)",
		},
		[]string{"resource"},
	)

	// AlertsDispatched tracks alerts delivered per severity
	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridpulse_alerts_dispatched_total",
			Help: "Total number of alerts delivered",
		},
		[]string{"severity"},
	)

	// AlertsDeduplicated tracks alerts suppressed by the dedup window
	AlertsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridpulse_alerts_deduplicated_total",
			Help: "Total number of alerts suppressed by deduplication",
		},
	)

	// BatchDuration tracks end-to-end batch processing latency
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridpulse_batch_duration_seconds",
			Help:    "Batch processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
