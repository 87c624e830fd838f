package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"WatcherPaymentsSeen", WatcherPaymentsSeen},
		{"WatcherPaymentsMatched", WatcherPaymentsMatched},
		{"WatcherPaymentsDropped", WatcherPaymentsDropped},
		{"WatcherReconnects", WatcherReconnects},
		{"PollerTicksTotal", PollerTicksTotal},
		{"PollerTickErrors", PollerTickErrors},
		{"PollerTransactionsProcessed", PollerTransactionsProcessed},
		{"PollerTransactionErrors", PollerTransactionErrors},
		{"PollerTickLatency", PollerTickLatency},
		{"SubmitterSubmissions", SubmitterSubmissions},
		{"SubmitterLatency", SubmitterLatency},
		{"ChannelAccountsAllocated", ChannelAccountsAllocated},
		{"TransitionsTotal", TransitionsTotal},
		{"TransitionConflicts", TransitionConflicts},
		{"NotificationsSent", NotificationsSent},
		{"NotificationErrors", NotificationErrors},
		{"HorizonCallsTotal", HorizonCallsTotal},
		{"HorizonRateLimitWaits", HorizonRateLimitWaits},
		{"QuotesCreated", QuotesCreated},
		{"BreakerState", BreakerState},
		{"AlertsSentTotal", AlertsSentTotal},
		{"AlertsCooldownSkipped", AlertsCooldownSkipped},
	}

	for _, v := range vars {
		assert.NotNilf(t, v.val, "%s should not be nil", v.name)
	}
}

func TestMetrics_IncrementNoPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { WatcherPaymentsSeen.WithLabelValues("GTEST").Inc() })
	assert.NotPanics(t, func() { WatcherPaymentsMatched.WithLabelValues("USDC").Inc() })
	assert.NotPanics(t, func() { WatcherPaymentsDropped.WithLabelValues("no_match").Inc() })
	assert.NotPanics(t, func() { PollerTicksTotal.WithLabelValues("deposits").Inc() })
	assert.NotPanics(t, func() { PollerTransactionsProcessed.WithLabelValues("deposits", "deposit").Inc() })
	assert.NotPanics(t, func() { SubmitterSubmissions.WithLabelValues("completed").Inc() })
	assert.NotPanics(t, func() { SubmitterSubmissions.WithLabelValues("requeued").Inc() })
	assert.NotPanics(t, func() { ChannelAccountsAllocated.Inc() })
	assert.NotPanics(t, func() { TransitionsTotal.WithLabelValues("pending_anchor", "pending_stellar").Inc() })
	assert.NotPanics(t, func() { HorizonCallsTotal.WithLabelValues("submit_transaction", "ok").Inc() })
	assert.NotPanics(t, func() { PollerTickLatency.WithLabelValues("deposits").Observe(0.1) })
	assert.NotPanics(t, func() { BreakerState.WithLabelValues("horizon").Set(2) })
}
