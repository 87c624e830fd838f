// Package quote prices asset pairs and manages the firm-quote ledger.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/metrics"
	"github.com/anchorline/anchor-engine/internal/rails"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrExpiredQuote is returned when a firm quote is consumed after its
	// expiry.
	ErrExpiredQuote = errors.New("quote: expired")

	// ErrNotFirm is returned when a transaction references a quote that is
	// not a firm quote.
	ErrNotFirm = errors.New("quote: not a firm quote")
)

// FirmQuoteRequest is a request to lock in a rate.
type FirmQuoteRequest struct {
	SellAsset          string
	BuyAsset           string
	SellAmount         decimal.Decimal
	SellDeliveryMethod *string
	BuyDeliveryMethod  *string
	ExpireAfter        *time.Time
	StellarAccount     string
}

// Ledger prices pairs via the configured rate source and persists firm
// quotes. Indicative prices are pass-through and never touch the store.
type Ledger struct {
	quotes store.QuoteRepository
	rates  rails.RateSource
	logger *slog.Logger
}

func NewLedger(quotes store.QuoteRepository, rates rails.RateSource, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		quotes: quotes,
		rates:  rates,
		logger: logger.With("component", "quote_ledger"),
	}
}

// IndicativePrice returns the current non-binding price for the pair.
func (l *Ledger) IndicativePrice(ctx context.Context, sellAsset, buyAsset string, sellAmount decimal.Decimal) (decimal.Decimal, error) {
	price, err := l.rates.IndicativePrice(ctx, sellAsset, buyAsset, sellAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("indicative price %s/%s: %w", sellAsset, buyAsset, err)
	}
	metrics.QuotesCreated.WithLabelValues(string(model.QuoteTypeIndicative)).Inc()
	return price, nil
}

// CreateFirmQuote obtains a binding price from the rate source and persists
// the quote. The record is created first and priced second so a crash
// between the two leaves an unpriced quote that can never be consumed.
func (l *Ledger) CreateFirmQuote(ctx context.Context, req FirmQuoteRequest) (*model.Quote, error) {
	q := &model.Quote{
		ID:                   uuid.New(),
		Type:                 model.QuoteTypeFirm,
		SellAsset:            req.SellAsset,
		BuyAsset:             req.BuyAsset,
		SellAmount:           req.SellAmount,
		SellDeliveryMethod:   req.SellDeliveryMethod,
		BuyDeliveryMethod:    req.BuyDeliveryMethod,
		RequestedExpireAfter: req.ExpireAfter,
		StellarAccount:       req.StellarAccount,
		CreatedAt:            time.Now().UTC(),
	}
	if err := l.quotes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	price, expiresAt, err := l.rates.FirmPrice(ctx, req.SellAsset, req.BuyAsset, req.SellAmount, req.ExpireAfter)
	if err != nil {
		return nil, fmt.Errorf("firm price %s/%s: %w", req.SellAsset, req.BuyAsset, err)
	}
	if req.ExpireAfter != nil && expiresAt.Before(*req.ExpireAfter) {
		return nil, fmt.Errorf("rate source expiry %s precedes requested minimum %s", expiresAt, req.ExpireAfter)
	}

	if err := l.quotes.SetPrice(ctx, q.ID, price, expiresAt); err != nil {
		return nil, fmt.Errorf("price quote %s: %w", q.ID, err)
	}

	buyAmount := req.SellAmount.Div(price)
	q.Price = &price
	q.BuyAmount = &buyAmount
	q.ExpiresAt = &expiresAt

	metrics.QuotesCreated.WithLabelValues(string(model.QuoteTypeFirm)).Inc()
	l.logger.Info("firm quote created",
		"quote_id", q.ID,
		"sell_asset", req.SellAsset,
		"buy_asset", req.BuyAsset,
		"price", price.String(),
		"expires_at", expiresAt)
	return q, nil
}

// ConsumableQuote loads a firm quote and verifies it can still be applied to
// a transaction at now: it must be priced and unexpired.
func (l *Ledger) ConsumableQuote(ctx context.Context, id uuid.UUID, now time.Time) (*model.Quote, error) {
	q, err := l.quotes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", id, err)
	}
	if q.Type != model.QuoteTypeFirm || q.Price == nil {
		return nil, fmt.Errorf("quote %s: %w", id, ErrNotFirm)
	}
	if q.Expired(now) {
		return nil, fmt.Errorf("quote %s expired at %s: %w", id, q.ExpiresAt, ErrExpiredQuote)
	}
	return q, nil
}
