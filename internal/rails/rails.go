// Package rails defines the integration surface between the engine and the
// anchor's off-chain payment rails (banking APIs, cash networks, partner
// anchors). The engine never talks to a rail directly; deployments provide
// implementations and the pollers drive them.
package rails

import (
	"context"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=rails.go -destination=mocks/rails_mock.go -package=mocks

// PollResult reports whether off-chain funds for a deposit have arrived.
type PollResult struct {
	Received bool
	// AmountIn is the amount actually received, which may differ from the
	// amount the user said they would send.
	AmountIn decimal.Decimal
	// ExternalID is the rail-side reference for the incoming transfer.
	ExternalID string
}

// PayoutStatus is the delivery state of an initiated off-chain payout.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutDelivered PayoutStatus = "delivered"
	PayoutFailed    PayoutStatus = "failed"
)

// PayoutResult reports the outcome of initiating an off-chain payout.
type PayoutResult struct {
	ExternalID string
	Status     PayoutStatus
	// Message carries the rail's failure detail when Status is failed.
	Message string
}

// DepositRail checks the anchor's off-chain accounts for incoming user
// transfers.
type DepositRail interface {
	// PollReceived reports whether the expected funds for the deposit have
	// arrived off-chain. Returning Received=false with a nil error means
	// not yet; the poller asks again next tick.
	PollReceived(ctx context.Context, tx *model.Transaction) (*PollResult, error)
}

// PayoutRail initiates outgoing off-chain transfers for withdrawals and
// cross-border payments.
type PayoutRail interface {
	// ExecutePayout initiates the off-chain transfer of tx.AmountOut to the
	// user. Implementations must be idempotent per transaction ID.
	ExecutePayout(ctx context.Context, tx *model.Transaction) (*PayoutResult, error)
}

// PayoutTracker follows an initiated payout to settlement.
type PayoutTracker interface {
	// PollDelivery reports the current delivery state of a payout
	// previously initiated via ExecutePayout.
	PollDelivery(ctx context.Context, tx *model.Transaction) (*PayoutResult, error)
}

// ChannelAccountProvider creates funded channel accounts on demand for
// multisig submission flows.
type ChannelAccountProvider interface {
	// CreateChannelAccount creates and funds a fresh account, returning its
	// address and current sequence number.
	CreateChannelAccount(ctx context.Context) (address string, sequence int64, err error)
}

// RateSource prices asset pairs for the quote ledger. Assets are identified
// in SEP-38 form ("stellar:USDC:G..." or "iso4217:USD").
type RateSource interface {
	// IndicativePrice returns the current non-binding price of one unit of
	// sellAsset in buyAsset.
	IndicativePrice(ctx context.Context, sellAsset, buyAsset string, sellAmount decimal.Decimal) (decimal.Decimal, error)

	// FirmPrice returns a binding price and the time it expires.
	FirmPrice(ctx context.Context, sellAsset, buyAsset string, sellAmount decimal.Decimal, expireAfter *time.Time) (price decimal.Decimal, expiresAt time.Time, err error)
}
