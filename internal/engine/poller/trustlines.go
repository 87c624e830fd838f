package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/registry"
	"github.com/anchorline/anchor-engine/internal/stellar"
	"github.com/anchorline/anchor-engine/internal/store"
)

// TrustlinePoller watches deposits parked in pending_trust and resubmits them
// once the destination account establishes the missing trustline.
type TrustlinePoller struct {
	txs       store.TransactionStore
	client    stellar.Client
	assets    *registry.Registry
	submitter PaymentSubmitter
	interval  time.Duration
	batch     int
	logger    *slog.Logger
}

func NewTrustlinePoller(
	txs store.TransactionStore,
	client stellar.Client,
	assets *registry.Registry,
	submitter PaymentSubmitter,
	interval time.Duration,
	batch int,
	logger *slog.Logger,
) *TrustlinePoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustlinePoller{
		txs:       txs,
		client:    client,
		assets:    assets,
		submitter: submitter,
		interval:  interval,
		batch:     batch,
		logger:    logger.With("component", "trustline_poller"),
	}
}

func (p *TrustlinePoller) Run(ctx context.Context) error {
	return runTicker(ctx, "trustlines", p.interval, p.logger, p.tick)
}

func (p *TrustlinePoller) tick(ctx context.Context) error {
	txs, err := p.txs.ListByStatus(ctx, model.StatusPendingTrust, nil, p.batch)
	if err != nil {
		return fmt.Errorf("list trust-blocked deposits: %w", err)
	}
	processEach(ctx, "trustlines", p.logger, txs, p.process)
	return nil
}

func (p *TrustlinePoller) process(ctx context.Context, tx *model.Transaction) error {
	asset, ok := p.assets.ByID(tx.AssetID)
	if !ok {
		// Asset got disabled while the deposit waited; leave it for the
		// operator rather than erroring a recoverable transaction.
		p.logger.Warn("trust-blocked deposit for disabled asset",
			"transaction_id", tx.ID,
			"asset_id", tx.AssetID)
		return nil
	}

	destination := tx.StellarAccount
	if tx.ToAddress != nil {
		destination = *tx.ToAddress
	}

	account, err := p.client.GetAccount(ctx, destination)
	if err != nil {
		return fmt.Errorf("fetch destination %s: %w", destination, err)
	}
	if !account.HasTrustline(asset.Code, asset.Issuer) {
		return nil
	}

	p.logger.Info("trustline established, resubmitting",
		"transaction_id", tx.ID,
		"destination", destination,
		"asset", asset.Code)
	return p.submitter.Submit(ctx, tx, model.StatusPendingTrust)
}
