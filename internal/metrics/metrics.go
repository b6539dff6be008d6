package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the detection service
type Metrics struct {
	TelemetryTotal        *prometheus.CounterVec
	TelemetryInvalidTotal prometheus.Counter
	AlertsTotal           *prometheus.CounterVec
	EvaluationsTotal      prometheus.Counter
	EvaluationErrors      prometheus.Counter
	EvaluationDuration    prometheus.Histogram
	ValidationsTotal      *prometheus.CounterVec
	PublishErrors         prometheus.Counter
}

// NewMetrics registers all instruments on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all instruments on the given registry
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TelemetryTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_telemetry_records_total",
			Help: "Telemetry records received, by kind",
		}, []string{"kind"}),
		TelemetryInvalidTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_telemetry_invalid_total",
			Help: "Telemetry records rejected during decode or validation",
		}),
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Alerts emitted, by type and severity",
		}, []string{"type", "severity"}),
		EvaluationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_evaluations_total",
			Help: "Per-vehicle detection passes completed",
		}),
		EvaluationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_evaluation_errors_total",
			Help: "Per-vehicle detection passes that panicked or failed",
		}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_evaluation_duration_seconds",
			Help:    "Wall time of a full fleet evaluation pass",
			Buckets: prometheus.DefBuckets,
		}),
		ValidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_correction_validations_total",
			Help: "Correction validations processed, by outcome",
		}, []string{"outcome"}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_publish_errors_total",
			Help: "Failures publishing alerts to downstream sinks",
		}),
	}
}

// RecordAlert counts an emitted alert by its type and severity labels
func (m *Metrics) RecordAlert(alertType, severity string) {
	m.AlertsTotal.WithLabelValues(alertType, severity).Inc()
}

// RecordTelemetry counts a received telemetry record by kind
func (m *Metrics) RecordTelemetry(kind string) {
	m.TelemetryTotal.WithLabelValues(kind).Inc()
}

// RecordValidation counts a correction validation by outcome ("valid" or
// "invalid")
func (m *Metrics) RecordValidation(outcome string) {
	m.ValidationsTotal.WithLabelValues(outcome).Inc()
}
