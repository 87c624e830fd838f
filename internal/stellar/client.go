// Package stellar talks to the Stellar network through a Horizon server:
// account lookups, payment streaming over SSE, and envelope submission.
package stellar

import (
	"context"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=client.go -destination=mocks/client_mock.go -package=mocks

// PaymentHandler consumes one observed payment operation. Returning an error
// aborts the stream; the caller decides whether to reconnect.
type PaymentHandler func(ctx context.Context, p *model.Payment) error

// PaymentRequest describes a payment to be built into an envelope.
type PaymentRequest struct {
	Destination string
	AssetCode   string
	AssetIssuer string
	Amount      decimal.Decimal
	Memo        string
	MemoType    model.MemoType
}

// Envelope is a built (and possibly partially signed) transaction envelope
// together with the source sequence number captured at build time.
type Envelope struct {
	XDR            string
	SequenceNumber int64
}

// SubmitResult is the outcome of a successful envelope submission.
type SubmitResult struct {
	Hash   string
	Ledger int32
}

type Balance struct {
	AssetType   string
	AssetCode   string
	AssetIssuer string
	Balance     decimal.Decimal
}

type Signer struct {
	Key    string
	Weight int32
}

type Thresholds struct {
	Low    int32
	Medium int32
	High   int32
}

// Account is the on-chain view of an account: sequence, signing
// configuration, and trustlines.
type Account struct {
	ID         string
	Sequence   int64
	Thresholds Thresholds
	Signers    []Signer
	Balances   []Balance
}

// MasterWeight returns the weight of the account's own key, or zero when the
// master key has been removed from the signer list.
func (a *Account) MasterWeight() int32 {
	for _, s := range a.Signers {
		if s.Key == a.ID {
			return s.Weight
		}
	}
	return 0
}

// HasTrustline reports whether the account holds a trustline for the issued
// asset. Native balances do not count.
func (a *Account) HasTrustline(code, issuer string) bool {
	for _, b := range a.Balances {
		if b.AssetCode == code && b.AssetIssuer == issuer {
			return true
		}
	}
	return false
}

// Client is the Horizon API surface the engine depends on.
type Client interface {
	// GetAccount fetches the current on-chain state of an account.
	GetAccount(ctx context.Context, address string) (*Account, error)

	// StreamPayments opens an SSE stream of payment operations for the
	// account, resuming from cursor (empty = now), and invokes handler for
	// each one. Blocks until ctx is cancelled, the handler errors, or the
	// stream drops; reconnecting is the caller's job.
	StreamPayments(ctx context.Context, account, cursor string, handler PaymentHandler) error

	// SubmitEnvelope submits a signed envelope. Rejections carry a
	// *SubmissionError with the Horizon result codes.
	SubmitEnvelope(ctx context.Context, envelopeXDR string) (*SubmitResult, error)
}

// EnvelopeBuilder builds and signs payment envelopes. Implementations own
// the key material; the engine only moves the resulting XDR around. For
// multisig flows the source is a channel account and the returned envelope
// carries only the signatures available locally.
type EnvelopeBuilder interface {
	BuildPayment(ctx context.Context, sourceAddress string, sequence int64, req PaymentRequest) (*Envelope, error)
}
