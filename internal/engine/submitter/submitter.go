// Package submitter owns the on-chain submission path for deposits: building
// payment envelopes, routing multisig assets through channel accounts, and
// classifying Horizon rejections into the right lifecycle status.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/circuitbreaker"
	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/engine/retry"
	"github.com/anchorline/anchor-engine/internal/metrics"
	"github.com/anchorline/anchor-engine/internal/multisig"
	"github.com/anchorline/anchor-engine/internal/registry"
	"github.com/anchorline/anchor-engine/internal/stellar"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/anchorline/anchor-engine/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Transient Horizon failures are retried in place with the identical
	// envelope. That is always safe: the sequence number admits at most one
	// ledger inclusion, so a resubmission cannot double-pay.
	submitAttempts     = 3
	submitRetryBackoff = time.Second
)

// Submitter is shared by the executor and trustline pollers: both funnel
// their deposits through Submit so sequence discipline lives in one place.
type Submitter struct {
	txs      store.TransactionStore
	channels store.ChannelAccountRepository
	client   stellar.Client
	builder  stellar.EnvelopeBuilder
	manager  *multisig.Manager
	assets   *registry.Registry
	breaker  *circuitbreaker.Breaker
	logger   *slog.Logger
}

func New(
	txs store.TransactionStore,
	channels store.ChannelAccountRepository,
	client stellar.Client,
	builder stellar.EnvelopeBuilder,
	manager *multisig.Manager,
	assets *registry.Registry,
	breaker *circuitbreaker.Breaker,
	logger *slog.Logger,
) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		txs:      txs,
		channels: channels,
		client:   client,
		builder:  builder,
		manager:  manager,
		assets:   assets,
		breaker:  breaker,
		logger:   logger.With("component", "submitter"),
	}
}

// Submit drives one deposit from fromStatus onto the chain. Failures before
// the submission claim leave the transaction untouched for the next tick;
// failures after submission are resolved into pending_trust or error, never
// silently retried, because the payment may have reached the ledger.
func (s *Submitter) Submit(ctx context.Context, tx *model.Transaction, fromStatus model.TransactionStatus) error {
	asset, ok := s.assets.ByID(tx.AssetID)
	if !ok {
		return s.fail(ctx, tx, fromStatus, fmt.Sprintf("asset %s is not enabled", tx.AssetID))
	}
	if tx.AmountOut == nil {
		return s.fail(ctx, tx, fromStatus, "amount_out not computed before submission")
	}

	// A stored envelope means the multisig path already ran; resubmit it.
	if tx.EnvelopeXDR != nil {
		return s.submitEnvelope(ctx, tx, asset, fromStatus, *tx.EnvelopeXDR)
	}

	required, err := s.manager.RequiresMultisig(ctx, asset.DistributionAccount)
	if err != nil {
		return fmt.Errorf("multisig check for %s: %w", tx.ID, err)
	}
	if required {
		return s.buildMultisigEnvelope(ctx, tx, asset, fromStatus)
	}
	return s.submitDirect(ctx, tx, asset, fromStatus)
}

// buildMultisigEnvelope allocates the channel account, builds the envelope
// from its sequence, and parks the transaction in pending_external until the
// remaining signatures are collected out of band.
func (s *Submitter) buildMultisigEnvelope(ctx context.Context, tx *model.Transaction, asset *model.Asset, fromStatus model.TransactionStatus) error {
	ca, err := s.manager.AllocateChannelAccount(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("allocate channel for %s: %w", tx.ID, err)
	}

	envelope, err := s.builder.BuildPayment(ctx, ca.Address, ca.Sequence, s.paymentRequest(tx, asset))
	if err != nil {
		return fmt.Errorf("build envelope for %s: %w", tx.ID, err)
	}

	_, err = s.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{fromStatus},
		model.StatusPendingExternal,
		func(tx *model.Transaction) error {
			tx.EnvelopeXDR = &envelope.XDR
			tx.SequenceNumber = &envelope.SequenceNumber
			tx.PendingSignatures = true
			return nil
		})
	if err != nil {
		return fmt.Errorf("park %s for signatures: %w", tx.ID, err)
	}

	s.logger.Info("multisig envelope built",
		"transaction_id", tx.ID,
		"channel", ca.Address,
		"sequence", envelope.SequenceNumber)
	return nil
}

// submitDirect is the single-signer path: build from the distribution
// account's live sequence and submit immediately.
func (s *Submitter) submitDirect(ctx context.Context, tx *model.Transaction, asset *model.Asset, fromStatus model.TransactionStatus) error {
	if err := s.breaker.Allow(); err != nil {
		return fmt.Errorf("submission for %s: %w", tx.ID, err)
	}

	account, err := s.client.GetAccount(ctx, asset.DistributionAccount)
	if err != nil {
		return fmt.Errorf("fetch distribution account: %w", err)
	}
	envelope, err := s.builder.BuildPayment(ctx, asset.DistributionAccount, account.Sequence, s.paymentRequest(tx, asset))
	if err != nil {
		return fmt.Errorf("build envelope for %s: %w", tx.ID, err)
	}
	return s.submitEnvelope(ctx, tx, asset, fromStatus, envelope.XDR)
}

// submitEnvelope claims the submission slot and pushes the envelope to the
// network. Once claimed, the transaction never returns to fromStatus.
func (s *Submitter) submitEnvelope(ctx context.Context, tx *model.Transaction, asset *model.Asset, fromStatus model.TransactionStatus, envelopeXDR string) error {
	if err := s.breaker.Allow(); err != nil {
		return fmt.Errorf("submission for %s: %w", tx.ID, err)
	}

	ctx, span := tracing.Tracer("submitter").Start(ctx, "submit_envelope",
		trace.WithAttributes(attribute.String("transaction_id", tx.ID.String())))
	defer span.End()

	claimed, err := s.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{fromStatus},
		model.StatusPendingStellar, nil)
	if err != nil {
		return fmt.Errorf("claim submission for %s: %w", tx.ID, err)
	}

	start := time.Now()
	var result *stellar.SubmitResult
	var submitErr error
	for attempt := 1; ; attempt++ {
		submitErr = s.breaker.Do(func() error {
			var err error
			result, err = s.client.SubmitEnvelope(ctx, envelopeXDR)
			return err
		})
		if submitErr == nil || attempt >= submitAttempts || !retry.Classify(submitErr).IsTransient() {
			break
		}
		s.logger.Warn("transient submission failure, resubmitting",
			"transaction_id", claimed.ID,
			"attempt", attempt,
			"error", submitErr)
		select {
		case <-ctx.Done():
			// Shutdown mid-submission leaves the claim in pending_stellar,
			// same as a crash; an operator resolves it like any parked claim.
			return ctx.Err()
		case <-time.After(submitRetryBackoff):
		}
	}
	metrics.SubmitterLatency.Observe(time.Since(start).Seconds())

	if submitErr == nil {
		_, err := s.txs.Transition(ctx, claimed.ID,
			[]model.TransactionStatus{model.StatusPendingStellar},
			model.StatusCompleted,
			func(tx *model.Transaction) error {
				tx.StellarTransactionID = &result.Hash
				return nil
			})
		if err != nil {
			return fmt.Errorf("complete %s after submission %s: %w", claimed.ID, result.Hash, err)
		}
		if err := s.markChannelSubmitted(ctx, claimed); err != nil {
			s.logger.Warn("channel status update failed", "transaction_id", claimed.ID, "error", err)
		}
		metrics.SubmitterSubmissions.WithLabelValues("completed").Inc()
		s.logger.Info("payment submitted",
			"transaction_id", claimed.ID,
			"hash", result.Hash,
			"ledger", result.Ledger)
		return nil
	}

	span.RecordError(submitErr)

	var subErr *stellar.SubmissionError
	if errors.As(submitErr, &subErr) && subErr.NoTrust() {
		_, err := s.txs.Transition(ctx, claimed.ID,
			[]model.TransactionStatus{model.StatusPendingStellar},
			model.StatusPendingTrust,
			func(tx *model.Transaction) error {
				msg := "destination account has no trustline for the asset"
				tx.StatusMessage = &msg
				return nil
			})
		if err != nil {
			return fmt.Errorf("move %s to pending_trust: %w", claimed.ID, err)
		}
		metrics.SubmitterSubmissions.WithLabelValues("pending_trust").Inc()
		return nil
	}

	// tx_bad_seq means the envelope never reached the ledger: its sequence
	// was consumed by something else while signatures were being collected.
	// Rebuild from the channel's live sequence and re-park for signing.
	if errors.As(submitErr, &subErr) && subErr.BadSequence() {
		if rerr := s.reparkStaleEnvelope(ctx, claimed, asset); rerr == nil {
			metrics.SubmitterSubmissions.WithLabelValues("requeued").Inc()
			return nil
		} else if !errors.Is(rerr, store.ErrNotFound) {
			s.logger.Warn("stale envelope rebuild failed",
				"transaction_id", claimed.ID,
				"error", rerr)
		}
	}

	// The envelope may or may not have reached the ledger; resolving that
	// needs an operator, so the transaction is parked in error rather than
	// risking a double payment on blind resubmission.
	msg := fmt.Sprintf("submission failed: %v", submitErr)
	if _, terr := s.txs.Transition(ctx, claimed.ID,
		[]model.TransactionStatus{model.StatusPendingStellar},
		model.StatusError,
		func(tx *model.Transaction) error {
			tx.StatusMessage = &msg
			return nil
		}); terr != nil {
		return fmt.Errorf("record submission failure for %s: %w", claimed.ID, terr)
	}
	metrics.SubmitterSubmissions.WithLabelValues("error").Inc()
	return fmt.Errorf("submit %s: %w", claimed.ID, submitErr)
}

func (s *Submitter) markChannelSubmitted(ctx context.Context, tx *model.Transaction) error {
	ca, err := s.channels.GetByTransaction(ctx, tx.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.channels.UpdateStatus(ctx, ca.Address, model.ChannelSubmitted)
}

// reparkStaleEnvelope rebuilds a rejected channel envelope from the channel's
// live sequence and returns the transaction to pending_external for a fresh
// round of signatures. store.ErrNotFound means the transaction has no channel
// account, so the rejection came from the direct path and is not recoverable
// here.
func (s *Submitter) reparkStaleEnvelope(ctx context.Context, tx *model.Transaction, asset *model.Asset) error {
	ca, err := s.channels.GetByTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}

	account, err := s.client.GetAccount(ctx, ca.Address)
	if err != nil {
		return fmt.Errorf("fetch channel account %s: %w", ca.Address, err)
	}
	envelope, err := s.builder.BuildPayment(ctx, ca.Address, account.Sequence, s.paymentRequest(tx, asset))
	if err != nil {
		return fmt.Errorf("rebuild envelope for %s: %w", tx.ID, err)
	}

	_, err = s.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{model.StatusPendingStellar},
		model.StatusPendingExternal,
		func(tx *model.Transaction) error {
			tx.EnvelopeXDR = &envelope.XDR
			tx.SequenceNumber = &envelope.SequenceNumber
			tx.PendingSignatures = true
			return nil
		})
	if err != nil {
		return fmt.Errorf("re-park %s for signatures: %w", tx.ID, err)
	}

	s.logger.Info("stale envelope rebuilt",
		"transaction_id", tx.ID,
		"channel", ca.Address,
		"sequence", envelope.SequenceNumber)
	return nil
}

// paymentRequest addresses the on-chain payment. Withdrawals and sends carry
// an explicit destination; deposits fall back to the registered account,
// preferring the muxed form when the account is pooled. The receiving
// anchor's memo rides along so the counterparty can match the payment.
func (s *Submitter) paymentRequest(tx *model.Transaction, asset *model.Asset) stellar.PaymentRequest {
	destination := tx.StellarAccount
	if tx.MuxedAccount != nil && *tx.MuxedAccount != "" {
		destination = *tx.MuxedAccount
	}
	if tx.ToAddress != nil && *tx.ToAddress != "" {
		destination = *tx.ToAddress
	}
	memo := ""
	if tx.AccountMemo != nil {
		memo = *tx.AccountMemo
	}
	return stellar.PaymentRequest{
		Destination: destination,
		AssetCode:   asset.Code,
		AssetIssuer: asset.Issuer,
		Amount:      *tx.AmountOut,
		Memo:        memo,
		MemoType:    tx.MemoType,
	}
}

// fail moves the transaction straight to error with a message. Used for
// misconfigurations that no retry will fix.
func (s *Submitter) fail(ctx context.Context, tx *model.Transaction, fromStatus model.TransactionStatus, msg string) error {
	if _, err := s.txs.Transition(ctx, tx.ID,
		[]model.TransactionStatus{fromStatus},
		model.StatusError,
		func(tx *model.Transaction) error {
			tx.StatusMessage = &msg
			return nil
		}); err != nil {
		return fmt.Errorf("record failure for %s: %w", tx.ID, err)
	}
	metrics.SubmitterSubmissions.WithLabelValues("error").Inc()
	return fmt.Errorf("transaction %s: %s", tx.ID, msg)
}
