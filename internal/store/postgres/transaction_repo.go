package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const transactionColumns = `
	id, kind, status, status_message, asset_id,
	amount_expected, amount_in, amount_out, amount_fee,
	amount_in_asset, amount_out_asset, amount_fee_asset,
	stellar_account, muxed_account, account_memo, memo_type,
	to_address, from_address,
	envelope_xdr, sequence_number, pending_signatures,
	stellar_transaction_id, external_transaction_id,
	on_change_callback, refunded, quote_id,
	created_at, updated_at, started_at, completed_at`

// TransactionRepo is the Postgres-backed TransactionStore. Transition
// implements the optimistic compare-and-set: the row is read, mutated in
// memory, and written back with `WHERE status = <status read>`; zero rows
// affected means another writer won and the caller gets ErrConflict.
type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+strings.TrimSpace(transactionColumns)+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30)
	`,
		t.ID, t.Kind, t.Status, t.StatusMessage, t.AssetID,
		t.AmountExpected, decVal(t.AmountIn), decVal(t.AmountOut), decVal(t.AmountFee),
		t.AmountInAsset, t.AmountOutAsset, t.AmountFeeAsset,
		t.StellarAccount, t.MuxedAccount, t.AccountMemo, t.MemoType,
		t.ToAddress, t.FromAddress,
		t.EnvelopeXDR, t.SequenceNumber, t.PendingSignatures,
		t.StellarTransactionID, t.ExternalTransactionID,
		t.OnChangeCallback, t.Refunded, uuidVal(t.QuoteID),
		t.CreatedAt, t.UpdatedAt, t.StartedAt, t.CompletedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert transaction %s: %w", t.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *TransactionRepo) Transition(ctx context.Context, id uuid.UUID, fromSet []model.TransactionStatus, to model.TransactionStatus, mutate store.TransitionFn) (*model.Transaction, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := store.CheckTransition(current.Status, fromSet, to); err != nil {
		return nil, err
	}

	prev := current.Status
	next := current.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}
	store.ApplyStatus(next, to, time.Now().UTC())
	if err := store.ValidateCommit(next, to); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			status = $3, status_message = $4,
			amount_in = $5, amount_out = $6, amount_fee = $7,
			amount_in_asset = $8, amount_out_asset = $9, amount_fee_asset = $10,
			muxed_account = $11, account_memo = $12, memo_type = $13,
			to_address = $14, from_address = $15,
			envelope_xdr = $16, sequence_number = $17, pending_signatures = $18,
			stellar_transaction_id = $19, external_transaction_id = $20,
			on_change_callback = $21, refunded = $22, quote_id = $23,
			updated_at = $24, completed_at = $25
		WHERE id = $1 AND status = $2
	`,
		id, prev,
		next.Status, next.StatusMessage,
		decVal(next.AmountIn), decVal(next.AmountOut), decVal(next.AmountFee),
		next.AmountInAsset, next.AmountOutAsset, next.AmountFeeAsset,
		next.MuxedAccount, next.AccountMemo, next.MemoType,
		next.ToAddress, next.FromAddress,
		next.EnvelopeXDR, next.SequenceNumber, next.PendingSignatures,
		next.StellarTransactionID, next.ExternalTransactionID,
		next.OnChangeCallback, next.Refunded, uuidVal(next.QuoteID),
		next.UpdatedAt, next.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("transition %s %s->%s: %w", id, prev, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("transition %s %s->%s: %w", id, prev, to, store.ErrConflict)
	}
	return next, nil
}

func (r *TransactionRepo) ListByStatus(ctx context.Context, status model.TransactionStatus, kinds []model.TransactionKind, limit int) ([]*model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	kindFilter := make([]string, 0, len(kinds))
	for _, k := range kinds {
		kindFilter = append(kindFilter, string(k))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = $1
		  AND (cardinality($2::text[]) = 0 OR kind = ANY($2))
		ORDER BY started_at ASC
		LIMIT $3
	`, status, pq.Array(kindFilter), nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list transactions by status: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepo) ListReadyForSubmission(ctx context.Context, limit int) ([]*model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE kind = $1 AND status = $2 AND NOT pending_signatures
		ORDER BY started_at ASC
		LIMIT $3
	`, model.KindDeposit, model.StatusPendingExternal, nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list ready for submission: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepo) FindByMemo(ctx context.Context, assetID uuid.UUID, memo string) (*model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE asset_id = $1 AND account_memo = $2
		ORDER BY started_at DESC
		LIMIT 1
	`, assetID, memo)
	return scanTransaction(row)
}

func (r *TransactionRepo) SetReadyForSubmission(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET pending_signatures = FALSE, updated_at = now()
		WHERE id = $1 AND status = $2 AND pending_signatures
	`, id, model.StatusPendingExternal)
	if err != nil {
		return fmt.Errorf("set ready for submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set ready rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set ready for submission %s: %w", id, store.ErrConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		t         model.Transaction
		amountIn  decimal.NullDecimal
		amountOut decimal.NullDecimal
		amountFee decimal.NullDecimal
		quoteID   uuid.NullUUID
	)
	err := row.Scan(
		&t.ID, &t.Kind, &t.Status, &t.StatusMessage, &t.AssetID,
		&t.AmountExpected, &amountIn, &amountOut, &amountFee,
		&t.AmountInAsset, &t.AmountOutAsset, &t.AmountFeeAsset,
		&t.StellarAccount, &t.MuxedAccount, &t.AccountMemo, &t.MemoType,
		&t.ToAddress, &t.FromAddress,
		&t.EnvelopeXDR, &t.SequenceNumber, &t.PendingSignatures,
		&t.StellarTransactionID, &t.ExternalTransactionID,
		&t.OnChangeCallback, &t.Refunded, &quoteID,
		&t.CreatedAt, &t.UpdatedAt, &t.StartedAt, &t.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.AmountIn = decPtr(amountIn)
	t.AmountOut = decPtr(amountOut)
	t.AmountFee = decPtr(amountFee)
	if quoteID.Valid {
		id := quoteID.UUID
		t.QuoteID = &id
	}
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func decVal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}

func uuidVal(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil // LIMIT NULL = no limit
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
