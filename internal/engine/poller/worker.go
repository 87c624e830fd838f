// Package poller contains the interval workers that drive transactions
// through the lifecycle: deposit arrival, payout execution, payout delivery
// tracking, and trustline recovery.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/metrics"
	"github.com/anchorline/anchor-engine/internal/tracing"
)

// runTicker executes tick immediately and then on every interval until ctx is
// cancelled. Tick failures are logged and counted, never fatal; one bad rail
// response must not take the worker down.
func runTicker(ctx context.Context, worker string, interval time.Duration, logger *slog.Logger, tick func(context.Context) error) error {
	runOnce := func() {
		metrics.PollerTicksTotal.WithLabelValues(worker).Inc()
		start := time.Now()
		tickCtx, span := tracing.Tracer("poller").Start(ctx, worker+".tick")
		if err := tick(tickCtx); err != nil {
			span.RecordError(err)
			metrics.PollerTickErrors.WithLabelValues(worker).Inc()
			logger.Error("tick failed", "error", err)
		}
		span.End()
		metrics.PollerTickLatency.WithLabelValues(worker).Observe(time.Since(start).Seconds())
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}

// processEach applies fn to every transaction, isolating failures and panics
// so one stuck transaction cannot block the rest of the batch.
func processEach(ctx context.Context, worker string, logger *slog.Logger, txs []*model.Transaction, fn func(context.Context, *model.Transaction) error) {
	for _, tx := range txs {
		if ctx.Err() != nil {
			return
		}
		if err := processOne(ctx, tx, fn); err != nil {
			metrics.PollerTransactionErrors.WithLabelValues(worker, tx.Kind.String()).Inc()
			logger.Error("transaction processing failed",
				"transaction_id", tx.ID,
				"kind", tx.Kind,
				"status", tx.Status,
				"error", err)
			continue
		}
		metrics.PollerTransactionsProcessed.WithLabelValues(worker, tx.Kind.String()).Inc()
	}
}

func processOne(ctx context.Context, tx *model.Transaction, fn func(context.Context, *model.Transaction) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, tx)
}
