package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuoteRepo struct {
	db *DB
}

func NewQuoteRepo(db *DB) *QuoteRepo {
	return &QuoteRepo{db: db}
}

func (r *QuoteRepo) Create(ctx context.Context, q *model.Quote) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quotes (
			id, type, sell_asset, buy_asset, sell_amount, buy_amount, price,
			sell_delivery_method, buy_delivery_method,
			requested_expire_after, expires_at,
			stellar_account, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		q.ID, q.Type, q.SellAsset, q.BuyAsset, q.SellAmount,
		decVal(q.BuyAmount), decVal(q.Price),
		q.SellDeliveryMethod, q.BuyDeliveryMethod,
		q.RequestedExpireAfter, q.ExpiresAt,
		q.StellarAccount, q.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert quote %s: %w", q.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (r *QuoteRepo) Get(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		q         model.Quote
		buyAmount decimal.NullDecimal
		price     decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, type, sell_asset, buy_asset, sell_amount, buy_amount, price,
		       sell_delivery_method, buy_delivery_method,
		       requested_expire_after, expires_at,
		       stellar_account, created_at
		FROM quotes WHERE id = $1
	`, id).Scan(
		&q.ID, &q.Type, &q.SellAsset, &q.BuyAsset, &q.SellAmount, &buyAmount, &price,
		&q.SellDeliveryMethod, &q.BuyDeliveryMethod,
		&q.RequestedExpireAfter, &q.ExpiresAt,
		&q.StellarAccount, &q.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	q.BuyAmount = decPtr(buyAmount)
	q.Price = decPtr(price)
	return &q, nil
}

// SetPrice writes the firm price exactly once. The `price IS NULL` guard
// makes a second write report ErrImmutable instead of silently repricing.
func (r *QuoteRepo) SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE quotes
		SET price = $2, expires_at = $3
		WHERE id = $1 AND price IS NULL
	`, id, price, expiresAt)
	if err != nil {
		return fmt.Errorf("set quote price: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set price rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM quotes WHERE id = $1)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check quote %s: %w", id, err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return fmt.Errorf("quote %s already priced: %w", id, store.ErrImmutable)
	}
	return nil
}
