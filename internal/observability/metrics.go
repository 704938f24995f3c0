// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Probe metrics
	ProbeRunsTotal  *prometheus.CounterVec
	CheckResults    *prometheus.CounterVec
	CheckLatency    *prometheus.HistogramVec
	LastRunPassed   prometheus.Gauge
	LastRunFinished prometheus.Gauge

	// Chain metrics
	RPCCallLatency  *prometheus.HistogramVec
	LatestBlockSeen prometheus.Gauge
	WSReconnects    prometheus.Counter

	// Quote metrics
	QuoteLatency  *prometheus.HistogramVec
	QuotesFetched *prometheus.CounterVec
	BestQuoteRate *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "starknet_probe"
	}

	return &Metrics{
		// Probe metrics
		ProbeRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "runs_total",
			Help:      "Total number of probe runs by outcome",
		}, []string{"outcome"}),
		CheckResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "check_results_total",
			Help:      "Total number of check executions by check and status",
		}, []string{"check", "status"}),
		CheckLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "check_latency_seconds",
			Help:      "Check execution latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"check"}),
		LastRunPassed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "last_run_passed",
			Help:      "1 if the most recent probe run passed, 0 otherwise",
		}),
		LastRunFinished: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix timestamp of the most recent probe run completion",
		}),

		// Chain metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "rpc_call_latency_seconds",
			Help:      "Starknet RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		LatestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "latest_block_seen",
			Help:      "Highest Starknet block number seen",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "starknet",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),

		// Quote metrics
		QuoteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "quote_latency_seconds",
			Help:      "Quote fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		QuotesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "quotes_fetched_total",
			Help:      "Total number of quotes fetched by provider and status",
		}, []string{"provider", "status"}),
		BestQuoteRate: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "best_quote_rate",
			Help:      "Most recent best quote rate (amount_out / amount_in) per pair",
		}, []string{"pair"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// RecordCheck records a single check outcome.
func (m *Metrics) RecordCheck(check, status string, seconds float64) {
	m.CheckResults.WithLabelValues(check, status).Inc()
	m.CheckLatency.WithLabelValues(check).Observe(seconds)
}

// RecordRun records a completed probe run.
func (m *Metrics) RecordRun(passed bool, finishedAtSeconds float64) {
	outcome := "fail"
	v := 0.0
	if passed {
		outcome = "pass"
		v = 1.0
	}
	m.ProbeRunsTotal.WithLabelValues(outcome).Inc()
	m.LastRunPassed.Set(v)
	m.LastRunFinished.Set(finishedAtSeconds)
}

// RecordRPCCall records a Starknet RPC call latency. Shaped to plug into
// starknet.WithCallObserver.
func (m *Metrics) RecordRPCCall(method string, seconds float64) {
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordQuote records one provider quote attempt.
func (m *Metrics) RecordQuote(provider string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.QuotesFetched.WithLabelValues(provider, status).Inc()
	m.QuoteLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordBestQuote records the winning quote rate for a pair.
func (m *Metrics) RecordBestQuote(pair string, rate float64) {
	m.BestQuoteRate.WithLabelValues(pair).Set(rate)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
