package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// Settlement
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"mode", "outcome"}, // outcome: completed | error code
	)
	AtomicRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atomic_unit_retries_total",
			Help: "Atomic units retried after a store conflict",
		},
		[]string{"op"}, // settle | expire | cancel | deposit
	)

	// Ledger lifecycle
	TransactionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_created_total",
			Help: "Transactions created",
		},
		[]string{"type"},
	)
	TransactionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_expired_total",
			Help: "Pending transactions moved to EXPIRED",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WebhooksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhooks_failed_total",
			Help: "Webhook deliveries that exhausted their attempts",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			SettlementsTotal,
			AtomicRetries,
			TransactionsCreated,
			TransactionsExpired,
			WorkerQueueDepth,
			WebhooksFailed,
		)
	})
}
