package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/engine/retry"
	"github.com/anchorline/anchor-engine/internal/fee"
	"github.com/anchorline/anchor-engine/internal/rails"
	"github.com/anchorline/anchor-engine/internal/registry"
	"github.com/anchorline/anchor-engine/internal/store"
)

// DepositPoller asks the deposit rail whether the off-chain funds for each
// waiting deposit have arrived, and prices the transaction when they have.
type DepositPoller struct {
	txs      store.TransactionStore
	rail     rails.DepositRail
	assets   *registry.Registry
	fees     *fee.Calculator
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewDepositPoller(
	txs store.TransactionStore,
	rail rails.DepositRail,
	assets *registry.Registry,
	fees *fee.Calculator,
	interval time.Duration,
	batch int,
	logger *slog.Logger,
) *DepositPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &DepositPoller{
		txs:      txs,
		rail:     rail,
		assets:   assets,
		fees:     fees,
		interval: interval,
		batch:    batch,
		logger:   logger.With("component", "deposit_poller"),
	}
}

func (p *DepositPoller) Run(ctx context.Context) error {
	return runTicker(ctx, "deposits", p.interval, p.logger, p.tick)
}

func (p *DepositPoller) tick(ctx context.Context) error {
	txs, err := p.txs.ListByStatus(ctx, model.StatusPendingUserTransferStart,
		[]model.TransactionKind{model.KindDeposit}, p.batch)
	if err != nil {
		return fmt.Errorf("list waiting deposits: %w", err)
	}
	processEach(ctx, "deposits", p.logger, txs, p.process)
	return nil
}

func (p *DepositPoller) process(ctx context.Context, tx *model.Transaction) error {
	result, err := p.rail.PollReceived(ctx, tx)
	if err != nil {
		if retry.Classify(err).IsTransient() {
			return fmt.Errorf("poll rail: %w", err)
		}
		return p.failTransaction(ctx, tx, fmt.Sprintf("deposit rail error: %v", err))
	}
	if !result.Received {
		return nil
	}

	asset, ok := p.assets.ByID(tx.AssetID)
	if !ok {
		return p.failTransaction(ctx, tx, fmt.Sprintf("asset %s is not enabled", tx.AssetID))
	}

	// The received amount governs, not what the user said they would send.
	if err := p.fees.ValidateAmount(asset, tx.Kind, result.AmountIn); err != nil {
		return p.failTransaction(ctx, tx, fmt.Sprintf("received amount rejected: %v", err))
	}
	breakdown, err := p.fees.Apply(asset, tx.Kind, result.AmountIn)
	if err != nil {
		return p.failTransaction(ctx, tx, fmt.Sprintf("received amount unusable: %v", err))
	}

	_, err = p.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{model.StatusPendingUserTransferStart},
		model.StatusPendingAnchor,
		func(tx *model.Transaction) error {
			tx.AmountIn = &breakdown.AmountIn
			tx.AmountOut = &breakdown.AmountOut
			tx.AmountFee = &breakdown.Fee
			if result.ExternalID != "" {
				tx.ExternalTransactionID = &result.ExternalID
			}
			return nil
		})
	if err != nil {
		return fmt.Errorf("advance deposit: %w", err)
	}

	p.logger.Info("deposit funds received",
		"transaction_id", tx.ID,
		"asset", asset.Code,
		"amount_in", breakdown.AmountIn,
		"external_id", result.ExternalID)
	return nil
}

func (p *DepositPoller) failTransaction(ctx context.Context, tx *model.Transaction, msg string) error {
	if _, err := p.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{tx.Status},
		model.StatusError,
		func(tx *model.Transaction) error {
			tx.StatusMessage = &msg
			return nil
		}); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return fmt.Errorf("transaction %s: %s", tx.ID, msg)
}
