package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuoteType string

const (
	QuoteTypeFirm       QuoteType = "firm"
	QuoteTypeIndicative QuoteType = "indicative"
)

// Quote is an exchange rate between a sell and a buy asset, identified in
// SEP-38 form ("stellar:USDC:G..." or "iso4217:USD"). A firm quote binds
// the anchor to the rate until ExpiresAt; once its price is set it is
// immutable. Indicative prices are computed on demand and never persisted.
type Quote struct {
	ID   uuid.UUID `db:"id"`
	Type QuoteType `db:"type"`

	SellAsset  string           `db:"sell_asset"`
	BuyAsset   string           `db:"buy_asset"`
	SellAmount decimal.Decimal  `db:"sell_amount"`
	BuyAmount  *decimal.Decimal `db:"buy_amount"`
	Price      *decimal.Decimal `db:"price"`

	SellDeliveryMethod *string `db:"sell_delivery_method"`
	BuyDeliveryMethod  *string `db:"buy_delivery_method"`

	RequestedExpireAfter *time.Time `db:"requested_expire_after"`
	ExpiresAt            *time.Time `db:"expires_at"`

	StellarAccount string    `db:"stellar_account"`
	CreatedAt      time.Time `db:"created_at"`
}

// Expired reports whether the quote can no longer be consumed at now.
func (q *Quote) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && !now.Before(*q.ExpiresAt)
}
