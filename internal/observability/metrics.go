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
	// Ledger metrics
	TransactionsSubmitted *prometheus.CounterVec
	InstructionsExecuted  *prometheus.CounterVec
	InstructionLatency    *prometheus.HistogramVec
	CurrentSlot           prometheus.Gauge
	AirdropLamports       prometheus.Counter
	JournalErrors         prometheus.Counter

	// RPC metrics
	RPCRequests    *prometheus.CounterVec
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastCommittedTransaction prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_scoring"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		TransactionsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_submitted_total",
			Help:      "Total number of submitted transactions by status",
		}, []string{"status"}),
		InstructionsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "instructions_executed_total",
			Help:      "Total number of executed instructions by program and outcome",
		}, []string{"program", "outcome"}),
		InstructionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "instruction_latency_seconds",
			Help:      "Instruction execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"program"}),
		CurrentSlot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "current_slot",
			Help:      "Current ledger slot",
		}),
		AirdropLamports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "airdrop_lamports_total",
			Help:      "Total lamports credited by airdrops",
		}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "journal_errors_total",
			Help:      "Total number of execution records that failed to persist",
		}),

		// RPC metrics
		RPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of JSON-RPC requests by method and status",
		}, []string{"method", "status"}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastCommittedTransaction: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_committed_transaction_timestamp",
			Help:      "Unix timestamp of last committed transaction",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordTransaction records a submitted transaction.
func (m *Metrics) RecordTransaction(status string, slot uint64, unixSeconds int64) {
	m.TransactionsSubmitted.WithLabelValues(status).Inc()
	m.CurrentSlot.Set(float64(slot))
	if status == "ok" {
		m.LastCommittedTransaction.Set(float64(unixSeconds))
	}
}

// RecordInstruction records one executed instruction.
func (m *Metrics) RecordInstruction(program, outcome string, seconds float64) {
	m.InstructionsExecuted.WithLabelValues(program, outcome).Inc()
	m.InstructionLatency.WithLabelValues(program).Observe(seconds)
}

// RecordRPC records a JSON-RPC call.
func (m *Metrics) RecordRPC(method, status string, seconds float64) {
	m.RPCRequests.WithLabelValues(method, status).Inc()
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRPCLatency records RPC call latency on DefaultMetrics.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}
