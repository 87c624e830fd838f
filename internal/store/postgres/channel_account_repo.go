package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
)

type ChannelAccountRepo struct {
	db *DB
}

func NewChannelAccountRepo(db *DB) *ChannelAccountRepo {
	return &ChannelAccountRepo{db: db}
}

// Create binds a channel account to its transaction. The unique constraints
// on address and transaction_id turn a double-bind into ErrConflict, which
// is what makes channel allocation idempotent under concurrent pollers.
func (r *ChannelAccountRepo) Create(ctx context.Context, ca *model.ChannelAccount) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channel_accounts (address, transaction_id, sequence, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, ca.Address, ca.TransactionID, ca.Sequence, ca.Status)
	if isUniqueViolation(err) {
		return fmt.Errorf("channel account %s: %w", ca.Address, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert channel account: %w", err)
	}
	return nil
}

func (r *ChannelAccountRepo) GetByTransaction(ctx context.Context, txID uuid.UUID) (*model.ChannelAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var ca model.ChannelAccount
	err := r.db.QueryRowContext(ctx, `
		SELECT address, transaction_id, sequence, status, created_at, updated_at
		FROM channel_accounts WHERE transaction_id = $1
	`, txID).Scan(&ca.Address, &ca.TransactionID, &ca.Sequence, &ca.Status, &ca.CreatedAt, &ca.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan channel account: %w", err)
	}
	return &ca, nil
}

func (r *ChannelAccountRepo) UpdateStatus(ctx context.Context, address string, status model.ChannelAccountStatus) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE channel_accounts SET status = $2, updated_at = now() WHERE address = $1
	`, address, status)
	if err != nil {
		return fmt.Errorf("update channel account status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
