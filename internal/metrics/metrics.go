package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer metrics - Track the polling loop
var (
	ObserverTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchord_observer_ticks_total",
			Help: "Total number of observer ticks by outcome",
		},
		[]string{"outcome"},
	)

	ObserverTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anchord_observer_tick_duration_seconds",
		Help:    "Time taken by a single observer tick",
		Buckets: prometheus.DefBuckets,
	})

	MetadataPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchord_metadata_pages_fetched_total",
		Help: "Total number of metadata-label pages fetched during discovery",
	})

	CandidatesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchord_candidates_discovered_total",
		Help: "Total number of transactions found newer than the checkpoint",
	})
)

// Pipeline metrics - Track concurrent transaction fetches
var (
	TransactionFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anchord_transaction_fetch_duration_seconds",
		Help:    "Time taken to fetch one candidate transaction",
		Buckets: prometheus.DefBuckets,
	})

	PipelineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anchord_pipeline_queue_depth",
		Help: "Fetched transactions waiting for an earlier one before ingestion",
	})

	PipelineWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anchord_pipeline_worker_count",
		Help: "Number of concurrent transaction fetch workers",
	})
)

// Ingestion metrics - Track what reaches the anchor log
var (
	AnchorsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchord_anchors_ingested_total",
		Help: "Total number of anchor records appended to the log",
	})

	TransactionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchord_transactions_rejected_total",
			Help: "Total number of candidate transactions rejected by validation",
		},
		[]string{"reason"},
	)

	LastTransactionNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anchord_last_transaction_number",
		Help: "Transaction number of the most recently ingested anchor",
	})
)

// Writer metrics - Track the funded-write path
var (
	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchord_writes_total",
			Help: "Total number of anchor writes by outcome",
		},
		[]string{"outcome"},
	)

	WalletBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "anchord_wallet_balance_lovelace",
		Help: "Wallet balance observed on the last write or balance check",
	})
)

// Backend metrics - Track failures
var (
	LedgerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchord_ledger_errors_total",
			Help: "Total number of failed ledger backend calls",
		},
		[]string{"backend", "op", "kind"},
	)

	LedgerRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anchord_ledger_retries_total",
		Help: "Total number of ledger read calls retried after a recoverable failure",
	})

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "anchord_ledger_breaker_state",
			Help: "Circuit breaker state per backend: 0=closed, 1=half-open, 2=open",
		},
		[]string{"backend"},
	)

	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anchord_events_emitted_total",
			Help: "Total number of loop events emitted by code",
		},
		[]string{"code"},
	)
)
