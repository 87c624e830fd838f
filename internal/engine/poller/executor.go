package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/engine/retry"
	"github.com/anchorline/anchor-engine/internal/rails"
	"github.com/anchorline/anchor-engine/internal/store"
)

// PaymentSubmitter drives one transaction onto the chain from the given
// status. Satisfied by submitter.Submitter.
type PaymentSubmitter interface {
	Submit(ctx context.Context, tx *model.Transaction, fromStatus model.TransactionStatus) error
}

// Executor acts on transactions the anchor has accepted: it submits deposits
// on-chain and initiates off-chain payouts for withdrawals and cross-border
// payments.
type Executor struct {
	txs       store.TransactionStore
	payouts   rails.PayoutRail
	submitter PaymentSubmitter
	interval  time.Duration
	batch     int
	logger    *slog.Logger
}

func NewExecutor(
	txs store.TransactionStore,
	payouts rails.PayoutRail,
	submitter PaymentSubmitter,
	interval time.Duration,
	batch int,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		txs:       txs,
		payouts:   payouts,
		submitter: submitter,
		interval:  interval,
		batch:     batch,
		logger:    logger.With("component", "executor"),
	}
}

func (e *Executor) Run(ctx context.Context) error {
	return runTicker(ctx, "executor", e.interval, e.logger, e.tick)
}

func (e *Executor) tick(ctx context.Context) error {
	// Deposits accepted by the anchor go on-chain.
	deposits, err := e.txs.ListByStatus(ctx, model.StatusPendingAnchor,
		[]model.TransactionKind{model.KindDeposit}, e.batch)
	if err != nil {
		return fmt.Errorf("list accepted deposits: %w", err)
	}
	processEach(ctx, "executor", e.logger, deposits, func(ctx context.Context, tx *model.Transaction) error {
		return e.submitter.Submit(ctx, tx, model.StatusPendingAnchor)
	})

	// Multisig deposits whose envelopes have collected their signatures.
	signed, err := e.txs.ListReadyForSubmission(ctx, e.batch)
	if err != nil {
		return fmt.Errorf("list signed deposits: %w", err)
	}
	processEach(ctx, "executor", e.logger, signed, func(ctx context.Context, tx *model.Transaction) error {
		return e.submitter.Submit(ctx, tx, model.StatusPendingExternal)
	})

	// Withdrawals with funds in hand pay out off-chain.
	withdrawals, err := e.txs.ListByStatus(ctx, model.StatusPendingAnchor,
		[]model.TransactionKind{model.KindWithdrawal}, e.batch)
	if err != nil {
		return fmt.Errorf("list accepted withdrawals: %w", err)
	}
	processEach(ctx, "executor", e.logger, withdrawals, func(ctx context.Context, tx *model.Transaction) error {
		return e.executePayout(ctx, tx, model.StatusPendingAnchor)
	})

	// Cross-border payments whose on-chain leg has settled.
	sends, err := e.txs.ListByStatus(ctx, model.StatusPendingReceiver,
		[]model.TransactionKind{model.KindSend}, e.batch)
	if err != nil {
		return fmt.Errorf("list receivable payments: %w", err)
	}
	processEach(ctx, "executor", e.logger, sends, func(ctx context.Context, tx *model.Transaction) error {
		return e.executePayout(ctx, tx, model.StatusPendingReceiver)
	})

	return nil
}

// executePayout initiates the off-chain transfer and maps the rail's answer
// onto the lifecycle. Transient rail errors leave the transaction where it
// is; the rail is idempotent per transaction ID, so the next tick retries
// safely. Terminal rail errors park the transaction in error.
func (e *Executor) executePayout(ctx context.Context, tx *model.Transaction, fromStatus model.TransactionStatus) error {
	result, err := e.payouts.ExecutePayout(ctx, tx)
	if err != nil {
		if retry.Classify(err).IsTransient() {
			return fmt.Errorf("execute payout: %w", err)
		}
		return e.failPayout(ctx, tx, fromStatus, fmt.Sprintf("payout rejected by rail: %v", err))
	}

	switch result.Status {
	case rails.PayoutDelivered:
		_, err = e.txs.Transition(ctx, tx.ID,
			[]model.TransactionStatus{fromStatus},
			model.StatusCompleted,
			func(tx *model.Transaction) error {
				setExternalID(tx, result.ExternalID)
				return nil
			})
		if err != nil {
			return fmt.Errorf("complete payout: %w", err)
		}
		e.logger.Info("payout delivered",
			"transaction_id", tx.ID,
			"external_id", result.ExternalID)
		return nil

	case rails.PayoutPending:
		_, err = e.txs.Transition(ctx, tx.ID,
			[]model.TransactionStatus{fromStatus},
			model.StatusPendingExternal,
			func(tx *model.Transaction) error {
				setExternalID(tx, result.ExternalID)
				return nil
			})
		if err != nil {
			return fmt.Errorf("mark payout pending: %w", err)
		}
		return nil

	case rails.PayoutFailed:
		msg := result.Message
		if msg == "" {
			msg = "payout failed"
		}
		return e.failPayout(ctx, tx, fromStatus, msg)

	default:
		return fmt.Errorf("payout for %s returned unknown status %q", tx.ID, result.Status)
	}
}

func (e *Executor) failPayout(ctx context.Context, tx *model.Transaction, fromStatus model.TransactionStatus, msg string) error {
	_, err := e.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{fromStatus},
		model.StatusError,
		func(tx *model.Transaction) error {
			tx.StatusMessage = &msg
			return nil
		})
	if err != nil {
		return fmt.Errorf("record payout failure: %w", err)
	}
	return fmt.Errorf("payout for %s failed: %s", tx.ID, msg)
}

func setExternalID(tx *model.Transaction, id string) {
	if id != "" {
		tx.ExternalTransactionID = &id
	}
}
