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

// OutgoingPoller tracks initiated off-chain payouts to settlement. Deposits
// in pending_external belong to the multisig flow and are not touched here;
// the kind filter excludes them.
type OutgoingPoller struct {
	txs      store.TransactionStore
	tracker  rails.PayoutTracker
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewOutgoingPoller(
	txs store.TransactionStore,
	tracker rails.PayoutTracker,
	interval time.Duration,
	batch int,
	logger *slog.Logger,
) *OutgoingPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutgoingPoller{
		txs:      txs,
		tracker:  tracker,
		interval: interval,
		batch:    batch,
		logger:   logger.With("component", "outgoing_poller"),
	}
}

func (p *OutgoingPoller) Run(ctx context.Context) error {
	return runTicker(ctx, "outgoing", p.interval, p.logger, p.tick)
}

func (p *OutgoingPoller) tick(ctx context.Context) error {
	txs, err := p.txs.ListByStatus(ctx, model.StatusPendingExternal,
		[]model.TransactionKind{model.KindWithdrawal, model.KindSend}, p.batch)
	if err != nil {
		return fmt.Errorf("list in-flight payouts: %w", err)
	}
	processEach(ctx, "outgoing", p.logger, txs, p.process)
	return nil
}

func (p *OutgoingPoller) process(ctx context.Context, tx *model.Transaction) error {
	result, err := p.tracker.PollDelivery(ctx, tx)
	if err != nil {
		if retry.Classify(err).IsTransient() {
			return fmt.Errorf("poll delivery: %w", err)
		}
		msg := fmt.Sprintf("payout tracking failed: %v", err)
		if _, terr := p.txs.Transition(ctx, tx.ID,
			[]model.TransactionStatus{model.StatusPendingExternal},
			model.StatusError,
			func(tx *model.Transaction) error {
				tx.StatusMessage = &msg
				return nil
			}); terr != nil {
			return fmt.Errorf("record tracking failure: %w", terr)
		}
		return fmt.Errorf("payout tracking for %s: %w", tx.ID, err)
	}

	switch result.Status {
	case rails.PayoutPending:
		return nil

	case rails.PayoutDelivered:
		_, err = p.txs.Transition(ctx, tx.ID,
			[]model.TransactionStatus{model.StatusPendingExternal},
			model.StatusCompleted,
			func(tx *model.Transaction) error {
				setExternalID(tx, result.ExternalID)
				return nil
			})
		if err != nil {
			return fmt.Errorf("complete payout: %w", err)
		}
		p.logger.Info("payout settled",
			"transaction_id", tx.ID,
			"external_id", result.ExternalID)
		return nil

	case rails.PayoutFailed:
		msg := result.Message
		if msg == "" {
			msg = "payout delivery failed"
		}
		_, err = p.txs.Transition(ctx, tx.ID,
			[]model.TransactionStatus{model.StatusPendingExternal},
			model.StatusError,
			func(tx *model.Transaction) error {
				tx.StatusMessage = &msg
				return nil
			})
		if err != nil {
			return fmt.Errorf("record delivery failure: %w", err)
		}
		return fmt.Errorf("payout for %s failed in delivery: %s", tx.ID, msg)

	default:
		return fmt.Errorf("delivery poll for %s returned unknown status %q", tx.ID, result.Status)
	}
}
