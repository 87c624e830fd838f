// Package watcher streams payment operations for the anchor's distribution
// accounts and matches them to waiting withdrawal and cross-border
// transactions by memo or muxed id.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/anchorline/anchor-engine/internal/alert"
	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/fee"
	"github.com/anchorline/anchor-engine/internal/metrics"
	"github.com/anchorline/anchor-engine/internal/registry"
	"github.com/anchorline/anchor-engine/internal/stellar"
	"github.com/anchorline/anchor-engine/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second

	// Consecutive stream failures before an operator alert fires.
	alertAfterFailures = 5
)

// Watcher runs one payment stream per distribution account. Each stream
// resumes from its persisted cursor, so observed payments survive restarts
// without being replayed from genesis.
type Watcher struct {
	client  stellar.Client
	txs     store.TransactionStore
	cursors store.CursorRepository
	assets  *registry.Registry
	fees    *fee.Calculator
	alerter alert.Alerter
	logger  *slog.Logger
}

func New(
	client stellar.Client,
	txs store.TransactionStore,
	cursors store.CursorRepository,
	assets *registry.Registry,
	fees *fee.Calculator,
	alerter alert.Alerter,
	logger *slog.Logger,
) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	return &Watcher{
		client:  client,
		txs:     txs,
		cursors: cursors,
		assets:  assets,
		fees:    fees,
		alerter: alerter,
		logger:  logger.With("component", "watcher"),
	}
}

// Run blocks until ctx is cancelled, streaming every distribution account
// known at startup. Accounts added later are picked up on restart.
func (w *Watcher) Run(ctx context.Context) error {
	accounts := w.assets.DistributionAccounts()
	if len(accounts) == 0 {
		w.logger.Warn("no distribution accounts to watch")
		<-ctx.Done()
		return ctx.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		g.Go(func() error {
			return w.watchAccount(ctx, account)
		})
	}
	return g.Wait()
}

// watchAccount is the reconnect loop for one account's stream. Stream drops
// back off exponentially; a run of failures raises an operator alert, and the
// next healthy connection raises a recovery.
func (w *Watcher) watchAccount(ctx context.Context, account string) error {
	logger := w.logger.With("account", account)

	cursor, err := w.cursors.Get(ctx, account)
	if err != nil {
		logger.Error("cursor load failed, streaming from now", "error", err)
	}

	backoff := reconnectBase
	failures := 0
	alerted := false

	for {
		streamErr := w.client.StreamPayments(ctx, account, cursor, func(ctx context.Context, p *model.Payment) error {
			w.handlePayment(ctx, account, p)
			cursor = p.PagingToken
			if err := w.cursors.Set(ctx, account, cursor); err != nil {
				logger.Error("cursor persist failed", "cursor", cursor, "error", err)
			}
			failures = 0
			backoff = reconnectBase
			if alerted {
				alerted = false
				w.sendAlert(ctx, alert.Alert{
					Type:    alert.AlertTypeRecovery,
					Account: account,
					Title:   "Payment stream recovered",
					Message: "Stream is delivering payments again",
				})
			}
			return nil
		})

		if ctx.Err() != nil {
			logger.Info("watcher stopping")
			return ctx.Err()
		}

		failures++
		metrics.WatcherReconnects.WithLabelValues(account).Inc()
		logger.Warn("payment stream dropped",
			"error", streamErr,
			"failures", failures,
			"backoff", backoff)

		if failures >= alertAfterFailures && !alerted {
			alerted = true
			w.sendAlert(ctx, alert.Alert{
				Type:    alert.AlertTypeStreamDown,
				Account: account,
				Title:   "Payment stream disconnected",
				Message: fmt.Sprintf("%d consecutive stream failures: %v", failures, streamErr),
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, reconnectMax)
	}
}

// handlePayment matches one observed payment to a waiting transaction and
// advances it. Unmatched payments are counted and dropped; nothing here ever
// aborts the stream.
func (w *Watcher) handlePayment(ctx context.Context, account string, p *model.Payment) {
	metrics.WatcherPaymentsSeen.WithLabelValues(account).Inc()

	if !p.Successful {
		w.drop(p, "unsuccessful")
		return
	}
	memo, ok := matchKey(p)
	if !ok {
		w.drop(p, "no_memo")
		return
	}

	asset, ok := w.assets.MatchIssued(p.AssetCode, p.AssetIssuer)
	if !ok {
		w.drop(p, "unknown_asset")
		return
	}

	tx, err := w.txs.FindByMemo(ctx, asset.ID, memo)
	if errors.Is(err, store.ErrNotFound) {
		w.drop(p, "no_match")
		return
	}
	if err != nil {
		w.logger.Error("memo lookup failed", "memo", memo, "error", err)
		w.drop(p, "lookup_error")
		return
	}

	var from, to model.TransactionStatus
	switch {
	case tx.Kind == model.KindWithdrawal && tx.Status == model.StatusPendingUserTransferStart:
		from, to = model.StatusPendingUserTransferStart, model.StatusPendingAnchor
	case tx.Kind == model.KindSend && tx.Status == model.StatusPendingSender:
		from, to = model.StatusPendingSender, model.StatusPendingReceiver
	default:
		// Most recent transaction for the memo is not waiting for funds;
		// likely a duplicate payment against a finished transaction.
		w.drop(p, "wrong_status")
		return
	}

	breakdown, err := w.fees.Apply(asset, tx.Kind, p.Amount)
	if err != nil {
		w.failTransaction(ctx, tx, from, fmt.Sprintf("received amount unusable: %v", err))
		return
	}

	_, err = w.txs.Transition(ctx, tx.ID, []model.TransactionStatus{from}, to,
		func(tx *model.Transaction) error {
			tx.AmountIn = &breakdown.AmountIn
			tx.AmountOut = &breakdown.AmountOut
			tx.AmountFee = &breakdown.Fee
			tx.StellarTransactionID = &p.TxHash
			tx.FromAddress = &p.From
			return nil
		})
	if errors.Is(err, store.ErrConflict) {
		// Another worker advanced it between the lookup and the write.
		w.drop(p, "conflict")
		return
	}
	if err != nil {
		w.logger.Error("payment transition failed",
			"transaction_id", tx.ID,
			"tx_hash", p.TxHash,
			"error", err)
		w.drop(p, "transition_error")
		return
	}

	metrics.WatcherPaymentsMatched.WithLabelValues(asset.Code).Inc()
	w.logger.Info("payment matched",
		"transaction_id", tx.ID,
		"kind", tx.Kind,
		"tx_hash", p.TxHash,
		"amount", p.Amount)
}

// matchKey is the identifier a payment was addressed with: its memo, or for
// muxed destinations the muxed id rendered the way pooled-account
// transactions register it.
func matchKey(p *model.Payment) (string, bool) {
	if p.Memo != nil && *p.Memo != "" {
		return *p.Memo, true
	}
	if p.ToMuxedID != nil {
		return strconv.FormatUint(*p.ToMuxedID, 10), true
	}
	return "", false
}

func (w *Watcher) drop(p *model.Payment, reason string) {
	metrics.WatcherPaymentsDropped.WithLabelValues(reason).Inc()
	w.logger.Debug("payment dropped",
		"reason", reason,
		"operation_id", p.OperationID,
		"tx_hash", p.TxHash)
}

func (w *Watcher) failTransaction(ctx context.Context, tx *model.Transaction, from model.TransactionStatus, msg string) {
	if _, err := w.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{from},
		model.StatusError,
		func(tx *model.Transaction) error {
			tx.StatusMessage = &msg
			return nil
		}); err != nil {
		w.logger.Error("failed to record transaction error",
			"transaction_id", tx.ID,
			"error", err)
	}
}

func (w *Watcher) sendAlert(ctx context.Context, a alert.Alert) {
	if err := w.alerter.Send(ctx, a); err != nil {
		w.logger.Warn("alert delivery failed", "type", a.Type, "error", err)
	}
}
