// Package memory provides in-process implementations of the store
// interfaces with the same optimistic-concurrency semantics as the
// Postgres implementations. Used by tests and single-process development
// runs; the authoritative deployment uses Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStore is a mutex-guarded, copy-on-read transaction store.
type TransactionStore struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*model.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[uuid.UUID]*model.Transaction)}
}

func (s *TransactionStore) Create(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.txs[tx.ID]; exists {
		return store.ErrConflict
	}
	s.txs[tx.ID] = tx.Clone()
	return nil
}

func (s *TransactionStore) Get(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return tx.Clone(), nil
}

func (s *TransactionStore) Transition(_ context.Context, id uuid.UUID, fromSet []model.TransactionStatus, to model.TransactionStatus, mutate store.TransitionFn) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := store.CheckTransition(current.Status, fromSet, to); err != nil {
		return nil, err
	}

	// Mutate a private copy so a failing mutator leaves the record intact.
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

	s.txs[id] = next
	return next.Clone(), nil
}

func (s *TransactionStore) ListByStatus(_ context.Context, status model.TransactionStatus, kinds []model.TransactionKind, limit int) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Transaction
	for _, tx := range s.txs {
		if tx.Status != status {
			continue
		}
		if len(kinds) > 0 && !kindIn(tx.Kind, kinds) {
			continue
		}
		out = append(out, tx.Clone())
	}
	sortByStartedAt(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TransactionStore) ListReadyForSubmission(_ context.Context, limit int) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Transaction
	for _, tx := range s.txs {
		if tx.Kind == model.KindDeposit && tx.Status == model.StatusPendingExternal && !tx.PendingSignatures {
			out = append(out, tx.Clone())
		}
	}
	sortByStartedAt(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TransactionStore) FindByMemo(_ context.Context, assetID uuid.UUID, memo string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *model.Transaction
	for _, tx := range s.txs {
		if tx.AssetID != assetID || tx.AccountMemo == nil || *tx.AccountMemo != memo {
			continue
		}
		if found == nil || tx.StartedAt.After(found.StartedAt) {
			found = tx
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found.Clone(), nil
}

func (s *TransactionStore) SetReadyForSubmission(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return store.ErrNotFound
	}
	if tx.Status != model.StatusPendingExternal || !tx.PendingSignatures {
		return store.ErrConflict
	}
	tx.PendingSignatures = false
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func kindIn(k model.TransactionKind, kinds []model.TransactionKind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func sortByStartedAt(txs []*model.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].StartedAt.Before(txs[j].StartedAt)
	})
}

// AssetRepo is an in-memory asset repository keyed by asset code.
type AssetRepo struct {
	mu     sync.RWMutex
	assets map[string]*model.Asset
}

func NewAssetRepo() *AssetRepo {
	return &AssetRepo{assets: make(map[string]*model.Asset)}
}

func (r *AssetRepo) GetByCode(_ context.Context, code string) (*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *AssetRepo) ListEnabled(_ context.Context) ([]*model.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		if a.DepositEnabled || a.WithdrawalEnabled || a.SendEnabled {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *AssetRepo) Upsert(_ context.Context, asset *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *asset
	r.assets[asset.Code] = &copied
	return nil
}

// QuoteRepo is an in-memory quote repository.
type QuoteRepo struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]*model.Quote
}

func NewQuoteRepo() *QuoteRepo {
	return &QuoteRepo{quotes: make(map[uuid.UUID]*model.Quote)}
}

func (r *QuoteRepo) Create(_ context.Context, q *model.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.quotes[q.ID]; exists {
		return store.ErrConflict
	}
	copied := *q
	r.quotes[q.ID] = &copied
	return nil
}

func (r *QuoteRepo) Get(_ context.Context, id uuid.UUID) (*model.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (r *QuoteRepo) SetPrice(_ context.Context, id uuid.UUID, price decimal.Decimal, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return store.ErrNotFound
	}
	if q.Price != nil {
		return store.ErrImmutable
	}
	q.Price = &price
	q.ExpiresAt = &expiresAt
	return nil
}

// Len reports the number of stored quotes. Test helper.
func (r *QuoteRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.quotes)
}

// ChannelAccountRepo is an in-memory channel account repository enforcing
// the one-transaction-one-channel binding.
type ChannelAccountRepo struct {
	mu        sync.Mutex
	byAddress map[string]*model.ChannelAccount
	byTx      map[uuid.UUID]string
}

func NewChannelAccountRepo() *ChannelAccountRepo {
	return &ChannelAccountRepo{
		byAddress: make(map[string]*model.ChannelAccount),
		byTx:      make(map[uuid.UUID]string),
	}
}

func (r *ChannelAccountRepo) Create(_ context.Context, ca *model.ChannelAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTx[ca.TransactionID]; exists {
		return store.ErrConflict
	}
	if _, exists := r.byAddress[ca.Address]; exists {
		return store.ErrConflict
	}
	copied := *ca
	r.byAddress[ca.Address] = &copied
	r.byTx[ca.TransactionID] = ca.Address
	return nil
}

func (r *ChannelAccountRepo) GetByTransaction(_ context.Context, txID uuid.UUID) (*model.ChannelAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.byTx[txID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *r.byAddress[addr]
	return &copied, nil
}

func (r *ChannelAccountRepo) UpdateStatus(_ context.Context, address string, status model.ChannelAccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ca, ok := r.byAddress[address]
	if !ok {
		return store.ErrNotFound
	}
	ca.Status = status
	ca.UpdatedAt = time.Now().UTC()
	return nil
}

// CursorRepo is an in-memory stream cursor repository.
type CursorRepo struct {
	mu      sync.RWMutex
	cursors map[string]*model.StreamCursor
}

func NewCursorRepo() *CursorRepo {
	return &CursorRepo{cursors: make(map[string]*model.StreamCursor)}
}

func (r *CursorRepo) Get(_ context.Context, account string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.cursors[account]
	if !ok {
		return "", nil
	}
	return sc.Cursor, nil
}

func (r *CursorRepo) Set(_ context.Context, account, cursor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursors[account] = &model.StreamCursor{
		Account:   account,
		Cursor:    cursor,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}
