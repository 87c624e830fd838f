package store

import (
	"context"
	"errors"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when an optimistic-concurrency guard fails:
	// another writer moved the record out of the expected state first.
	// Callers retry or drop the event; this is never a fault.
	ErrConflict = errors.New("store: conflict")

	// ErrInvalidTransition is returned when a requested status change is
	// not an edge of the lifecycle graph.
	ErrInvalidTransition = errors.New("store: invalid status transition")

	// ErrImmutable is returned when a write would alter a field that has
	// already been committed as immutable (e.g. a firm quote's price).
	ErrImmutable = errors.New("store: immutable field already set")
)

// TransitionFn mutates a transaction while its status transition is being
// committed. It sees a private copy; returning an error aborts the
// transition without touching the stored record.
type TransitionFn func(tx *model.Transaction) error

// TransactionStore owns transaction records and the lifecycle state machine.
// Transition is the engine's sole mutual-exclusion primitive: it atomically
// verifies the current status is in fromSet, checks the edge against the
// lifecycle graph, applies mutate, and commits the new status with a fresh
// timestamp. ErrConflict signals the caller lost the race.
type TransactionStore interface {
	Create(ctx context.Context, tx *model.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	Transition(ctx context.Context, id uuid.UUID, fromSet []model.TransactionStatus, to model.TransactionStatus, mutate TransitionFn) (*model.Transaction, error)

	// ListByStatus returns up to limit transactions in the given status,
	// optionally filtered by kind (nil kinds = all), oldest first.
	ListByStatus(ctx context.Context, status model.TransactionStatus, kinds []model.TransactionKind, limit int) ([]*model.Transaction, error)

	// ListReadyForSubmission returns deposit transactions whose envelopes
	// have collected all required signatures (pending_external with
	// pending_signatures cleared), oldest first.
	ListReadyForSubmission(ctx context.Context, limit int) ([]*model.Transaction, error)

	// FindByMemo returns the most recent transaction for the asset whose
	// account memo matches, regardless of status, so callers can detect
	// late re-deliveries against settled transactions. ErrNotFound when no
	// transaction ever used the memo.
	FindByMemo(ctx context.Context, assetID uuid.UUID, memo string) (*model.Transaction, error)

	// SetReadyForSubmission clears the pending-signatures flag on a
	// pending_external transaction. ErrConflict if the transaction is not
	// awaiting signatures.
	SetReadyForSubmission(ctx context.Context, id uuid.UUID) error
}

// AssetRepository provides access to the anchor's asset registry records.
type AssetRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Asset, error)
	ListEnabled(ctx context.Context) ([]*model.Asset, error)
	Upsert(ctx context.Context, asset *model.Asset) error
}

// QuoteRepository persists firm quotes. Indicative prices never reach it.
type QuoteRepository interface {
	Create(ctx context.Context, q *model.Quote) error
	Get(ctx context.Context, id uuid.UUID) (*model.Quote, error)

	// SetPrice assigns the price and expiry exactly once. ErrImmutable if
	// the quote is already priced.
	SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, expiresAt time.Time) error
}

// ChannelAccountRepository tracks channel accounts and their exclusive
// transaction bindings.
type ChannelAccountRepository interface {
	// Create persists a new channel account bound to its transaction.
	// ErrConflict if the transaction already has a channel account.
	Create(ctx context.Context, ca *model.ChannelAccount) error
	GetByTransaction(ctx context.Context, txID uuid.UUID) (*model.ChannelAccount, error)
	UpdateStatus(ctx context.Context, address string, status model.ChannelAccountStatus) error
}

// CursorRepository persists payment-stream resume cursors per account.
type CursorRepository interface {
	Get(ctx context.Context, account string) (string, error)
	Set(ctx context.Context, account, cursor string) error
}
