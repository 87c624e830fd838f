package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine worker counters and histograms, partitioned by asset code where the
// work is per-asset and by transaction kind where it is per-kind.

var (
	// Watcher
	WatcherPaymentsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "watcher",
		Name:      "payments_seen_total",
		Help:      "Total payment operations observed on watched accounts",
	}, []string{"account"})

	WatcherPaymentsMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "watcher",
		Name:      "payments_matched_total",
		Help:      "Total observed payments matched to a pending transaction",
	}, []string{"asset"})

	WatcherPaymentsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "watcher",
		Name:      "payments_dropped_total",
		Help:      "Total observed payments dropped without a transition",
	}, []string{"reason"})

	WatcherReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "watcher",
		Name:      "stream_reconnects_total",
		Help:      "Total payment stream reconnect attempts",
	}, []string{"account"})

	// Pollers
	PollerTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "poller",
		Name:      "ticks_total",
		Help:      "Total poller ticks",
	}, []string{"worker"})

	PollerTickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "poller",
		Name:      "tick_errors_total",
		Help:      "Total poller tick errors",
	}, []string{"worker"})

	PollerTransactionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "poller",
		Name:      "transactions_processed_total",
		Help:      "Total transactions advanced by pollers",
	}, []string{"worker", "kind"})

	PollerTransactionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "poller",
		Name:      "transaction_errors_total",
		Help:      "Total per-transaction poller failures",
	}, []string{"worker", "kind"})

	PollerTickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "anchor",
		Subsystem: "poller",
		Name:      "tick_duration_seconds",
		Help:      "Poller tick processing duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"worker"})

	// Submitter
	SubmitterSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "submitter",
		Name:      "submissions_total",
		Help:      "Total on-chain submission attempts by outcome",
	}, []string{"outcome"})

	SubmitterLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "anchor",
		Subsystem: "submitter",
		Name:      "submission_duration_seconds",
		Help:      "On-chain submission duration",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	ChannelAccountsAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "submitter",
		Name:      "channel_accounts_allocated_total",
		Help:      "Total channel accounts allocated for multisig submissions",
	})

	// Transitions
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "engine",
		Name:      "transitions_total",
		Help:      "Total committed status transitions",
	}, []string{"from", "to"})

	TransitionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "engine",
		Name:      "transition_conflicts_total",
		Help:      "Total transitions lost to a concurrent writer",
	}, []string{"to"})

	// Notifier
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "notifier",
		Name:      "notifications_sent_total",
		Help:      "Total status-change notifications delivered per sink",
	}, []string{"sink"})

	NotificationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "notifier",
		Name:      "notification_errors_total",
		Help:      "Total failed notification deliveries per sink",
	}, []string{"sink"})

	// Horizon client
	HorizonCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "horizon",
		Name:      "calls_total",
		Help:      "Total Horizon API calls by method and status classification",
	}, []string{"method", "status"})

	HorizonRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "horizon",
		Name:      "rate_limit_waits_total",
		Help:      "Total Horizon calls delayed by the local rate limiter",
	})

	// Quotes
	QuotesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "quote",
		Name:      "quotes_created_total",
		Help:      "Total quotes created by type",
	}, []string{"type"})

	// Circuit breaker
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "anchor",
		Subsystem: "engine",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per dependency (0=closed, 1=half-open, 2=open)",
	}, []string{"dependency"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts delivered per channel and type",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anchor",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts suppressed by the cooldown window",
	}, []string{"channel", "type"})
)
