package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "http_eval"

// MetricsCollector holds the Prometheus metrics for the service.
// Uses a custom registry, no global state. All record methods are nil-safe,
// so components may be built without metrics.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Evaluation metrics.
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec

	// Socket permission checks.
	GuardChecksTotal *prometheus.CounterVec

	ActiveRequests prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "evaluations_total",
			Help:      "Total evaluations by engine, mode and outcome.",
		}, []string{"engine", "mode", "outcome"}),

		EvaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "evaluation_duration_seconds",
			Help:      "Evaluation duration in seconds, including time spent suspended.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"engine", "mode"}),

		GuardChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "security",
			Name:      "socket_checks_total",
			Help:      "Socket permission checks performed.",
		}, []string{"result"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.GuardChecksTotal,
		m.ActiveRequests,
	)

	return m
}

// RecordRequest records one finished HTTP request.
func (m *MetricsCollector) RecordRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordEvaluation records one evaluation. outcome is "ok", "failure" or "error".
func (m *MetricsCollector) RecordEvaluation(engine, mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(engine, mode, outcome).Inc()
	m.EvaluationDuration.WithLabelValues(engine, mode).Observe(d.Seconds())
}

// RecordGuardCheck records the result of one socket permission check.
func (m *MetricsCollector) RecordGuardCheck(result string) {
	if m == nil {
		return
	}
	m.GuardChecksTotal.WithLabelValues(result).Inc()
}

// RequestStarted bumps the active request gauge and returns the matching
// decrement.
func (m *MetricsCollector) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.ActiveRequests.Inc()
	return m.ActiveRequests.Dec
}
