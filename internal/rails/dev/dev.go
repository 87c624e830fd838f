// Package dev provides self-settling rail implementations for local
// development and testnet demos. Deposits are treated as received on first
// poll and payouts deliver instantly. Never wire these in production.
package dev

import (
	"context"
	"fmt"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/rails"
	"github.com/shopspring/decimal"
)

// Rails implements every rail interface with instant, in-memory settlement.
type Rails struct{}

func New() *Rails { return &Rails{} }

var (
	_ rails.DepositRail            = (*Rails)(nil)
	_ rails.PayoutRail             = (*Rails)(nil)
	_ rails.PayoutTracker          = (*Rails)(nil)
	_ rails.ChannelAccountProvider = (*Rails)(nil)
	_ rails.RateSource             = (*Rails)(nil)
)

// CreateChannelAccount is not supported in development mode; multisig
// deposits stay queued until a real provider is wired.
func (r *Rails) CreateChannelAccount(_ context.Context) (string, int64, error) {
	return "", 0, fmt.Errorf("dev rails cannot create channel accounts")
}

func (r *Rails) PollReceived(_ context.Context, tx *model.Transaction) (*rails.PollResult, error) {
	return &rails.PollResult{
		Received:   true,
		AmountIn:   tx.AmountExpected,
		ExternalID: "dev-in-" + tx.ID.String(),
	}, nil
}

func (r *Rails) ExecutePayout(_ context.Context, tx *model.Transaction) (*rails.PayoutResult, error) {
	return &rails.PayoutResult{
		ExternalID: "dev-out-" + tx.ID.String(),
		Status:     rails.PayoutDelivered,
	}, nil
}

func (r *Rails) PollDelivery(_ context.Context, tx *model.Transaction) (*rails.PayoutResult, error) {
	return &rails.PayoutResult{
		ExternalID: "dev-out-" + tx.ID.String(),
		Status:     rails.PayoutDelivered,
	}, nil
}

func (r *Rails) IndicativePrice(_ context.Context, sellAsset, buyAsset string, _ decimal.Decimal) (decimal.Decimal, error) {
	if sellAsset == "" || buyAsset == "" {
		return decimal.Zero, fmt.Errorf("both assets are required")
	}
	return decimal.NewFromInt(1), nil
}

func (r *Rails) FirmPrice(_ context.Context, sellAsset, buyAsset string, _ decimal.Decimal, expireAfter *time.Time) (decimal.Decimal, time.Time, error) {
	if sellAsset == "" || buyAsset == "" {
		return decimal.Zero, time.Time{}, fmt.Errorf("both assets are required")
	}
	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	if expireAfter != nil && expireAfter.After(expiresAt) {
		expiresAt = *expireAfter
	}
	return decimal.NewFromInt(1), expiresAt, nil
}
