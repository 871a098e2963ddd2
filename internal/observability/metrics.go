// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the snipe pipeline.
type Metrics struct {
	// Realtime snipe-pipeline metrics
	ProgramLogsReceived    *prometheus.CounterVec
	ProgramLogsMatched     *prometheus.CounterVec
	ProgramLogsUnresolved  *prometheus.CounterVec
	ProgramLogsFailed      *prometheus.CounterVec
	RPCRequestAttempts     *prometheus.CounterVec
	RPCRequestSuccesses    *prometheus.CounterVec
	RPCRequestErrors       *prometheus.CounterVec
	RPCRequestRateLimited  *prometheus.CounterVec
	SnipeOrdersSubmitted   prometheus.Counter
	SnipeOrdersConfirmed   prometheus.Counter
	SnipeOrdersRejected    *prometheus.CounterVec
	SnipeExecutionDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_lab"
	}

	return &Metrics{
		ProgramLogsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "program_logs_received_total",
			Help:      "Total number of log notifications received by program",
		}, []string{"program"}),
		ProgramLogsMatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "program_logs_matched_total",
			Help:      "Total number of log notifications matching a known signal fingerprint",
		}, []string{"program", "fingerprint"}),
		ProgramLogsUnresolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "program_logs_unresolved_total",
			Help:      "Total number of matched log notifications whose mint could not be decoded",
		}, []string{"program"}),
		ProgramLogsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "program_logs_failed_total",
			Help:      "Total number of log notifications that failed processing",
		}, []string{"program", "stage"}),
		RPCRequestAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_request_attempts_total",
			Help:      "Total number of RPC call attempts by method, including retries",
		}, []string{"method"}),
		RPCRequestSuccesses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_request_successes_total",
			Help:      "Total number of RPC calls that returned successfully",
		}, []string{"method"}),
		RPCRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_request_errors_total",
			Help:      "Total number of RPC calls that returned a JSON-RPC error or failed after exhausting retries",
		}, []string{"method"}),
		RPCRequestRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_request_rate_limited_total",
			Help:      "Total number of RPC calls delayed by the local rate limiter",
		}, []string{"method"}),
		SnipeOrdersSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "orders_submitted_total",
			Help:      "Total number of buy orders submitted to the network",
		}),
		SnipeOrdersConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "orders_confirmed_total",
			Help:      "Total number of buy orders confirmed on-chain",
		}),
		SnipeOrdersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "orders_rejected_total",
			Help:      "Total number of buy orders rejected, by reason",
		}, []string{"reason"}),
		SnipeExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snipe",
			Name:      "execution_duration_seconds",
			Help:      "Duration of buy-order execution, from transaction build through confirmation",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"stage"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordProgramLogReceived records a raw log notification for program.
func RecordProgramLogReceived(program string) {
	DefaultMetrics.ProgramLogsReceived.WithLabelValues(program).Inc()
}

// RecordProgramLogMatched records a log notification matching fingerprint.
func RecordProgramLogMatched(program, fingerprint string) {
	DefaultMetrics.ProgramLogsMatched.WithLabelValues(program, fingerprint).Inc()
}

// RecordProgramLogUnresolved records a matched notification whose mint
// could not be decoded.
func RecordProgramLogUnresolved(program string) {
	DefaultMetrics.ProgramLogsUnresolved.WithLabelValues(program).Inc()
}

// RecordProgramLogFailed records a notification that failed at stage.
func RecordProgramLogFailed(program, stage string) {
	DefaultMetrics.ProgramLogsFailed.WithLabelValues(program, stage).Inc()
}

// RecordRPCAttempt records one RPC call attempt for method.
func RecordRPCAttempt(method string) {
	DefaultMetrics.RPCRequestAttempts.WithLabelValues(method).Inc()
}

// RecordRPCSuccess records a successful RPC call for method.
func RecordRPCSuccess(method string) {
	DefaultMetrics.RPCRequestSuccesses.WithLabelValues(method).Inc()
}

// RecordRPCError records an RPC call that returned a JSON-RPC error or
// failed after retries.
func RecordRPCError(method string) {
	DefaultMetrics.RPCRequestErrors.WithLabelValues(method).Inc()
}

// RecordRPCRateLimited records an RPC call delayed by the local limiter.
func RecordRPCRateLimited(method string) {
	DefaultMetrics.RPCRequestRateLimited.WithLabelValues(method).Inc()
}

// RecordSnipeOrderSubmitted records a buy order submitted to the network.
func RecordSnipeOrderSubmitted() {
	DefaultMetrics.SnipeOrdersSubmitted.Inc()
}

// RecordSnipeOrderConfirmed records a buy order confirmed on-chain.
func RecordSnipeOrderConfirmed() {
	DefaultMetrics.SnipeOrdersConfirmed.Inc()
}

// RecordSnipeOrderRejected records a buy order rejected for reason.
func RecordSnipeOrderRejected(reason string) {
	DefaultMetrics.SnipeOrdersRejected.WithLabelValues(reason).Inc()
}

// RecordSnipeExecutionDuration records the duration of a pipeline stage.
func RecordSnipeExecutionDuration(stage string, seconds float64) {
	DefaultMetrics.SnipeExecutionDuration.WithLabelValues(stage).Observe(seconds)
}
