// Package multisig decides when a distribution account needs more signatures
// than the engine holds, and manages the channel accounts that decouple
// sequence allocation from submission timing for those flows.
package multisig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anchorline/anchor-engine/internal/cache"
	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/metrics"
	"github.com/anchorline/anchor-engine/internal/rails"
	"github.com/anchorline/anchor-engine/internal/stellar"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
)

// ErrChannelExhausted is returned by channel account providers when no
// account can be created or funded right now.
var ErrChannelExhausted = errors.New("multisig: channel accounts exhausted")

const (
	accountCacheSize = 256
	accountCacheTTL  = 5 * time.Minute
)

// Manager answers the multisig question and allocates channel accounts.
type Manager struct {
	client   stellar.Client
	channels store.ChannelAccountRepository
	txs      store.TransactionStore
	provider rails.ChannelAccountProvider
	accounts *cache.LRU[string, *stellar.Account]
	logger   *slog.Logger
}

func NewManager(client stellar.Client, channels store.ChannelAccountRepository, txs store.TransactionStore, provider rails.ChannelAccountProvider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:   client,
		channels: channels,
		txs:      txs,
		provider: provider,
		accounts: cache.NewLRU[string, *stellar.Account](accountCacheSize, accountCacheTTL),
		logger:   logger.With("component", "multisig"),
	}
}

// RequiresMultisig reports whether payments from the distribution account
// need signatures the engine does not hold: the account's medium threshold
// exceeds its master key weight. Signer configuration changes rarely, so
// the on-chain lookup is cached with a short TTL.
func (m *Manager) RequiresMultisig(ctx context.Context, distributionAccount string) (bool, error) {
	account, ok := m.accounts.Get(distributionAccount)
	if !ok {
		fetched, err := m.client.GetAccount(ctx, distributionAccount)
		if err != nil {
			return false, fmt.Errorf("fetch distribution account %s: %w", distributionAccount, err)
		}
		m.accounts.Put(distributionAccount, fetched)
		account = fetched
	}
	return account.Thresholds.Medium > account.MasterWeight(), nil
}

// InvalidateAccount drops the cached signer configuration, forcing a fresh
// lookup on the next multisig check. Called after submission failures that
// suggest the configuration changed.
func (m *Manager) InvalidateAccount(distributionAccount string) {
	m.accounts.Remove(distributionAccount)
}

// AllocateChannelAccount returns the channel account bound to the
// transaction, creating one if none exists yet. The exclusive binding in the
// store makes this idempotent: concurrent callers converge on one channel.
func (m *Manager) AllocateChannelAccount(ctx context.Context, txID uuid.UUID) (*model.ChannelAccount, error) {
	existing, err := m.channels.GetByTransaction(ctx, txID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup channel for %s: %w", txID, err)
	}

	address, sequence, err := m.provider.CreateChannelAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("create channel account: %w", err)
	}

	ca := &model.ChannelAccount{
		Address:       address,
		TransactionID: txID,
		Sequence:      sequence,
		Status:        model.ChannelAssigned,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := m.channels.Create(ctx, ca); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the allocation race; use the winner's channel.
			return m.channels.GetByTransaction(ctx, txID)
		}
		return nil, fmt.Errorf("bind channel %s to %s: %w", address, txID, err)
	}

	metrics.ChannelAccountsAllocated.Inc()
	m.logger.Info("channel account allocated",
		"transaction_id", txID,
		"address", address,
		"sequence", sequence)
	return ca, nil
}

// MarkReadyForSubmission records that all required signatures have been
// collected for the transaction's envelope. The submitter picks it up on the
// next tick.
func (m *Manager) MarkReadyForSubmission(ctx context.Context, txID uuid.UUID) error {
	if err := m.txs.SetReadyForSubmission(ctx, txID); err != nil {
		return fmt.Errorf("mark %s ready for submission: %w", txID, err)
	}
	m.logger.Info("transaction ready for submission", "transaction_id", txID)
	return nil
}

// ReleaseChannel marks the transaction's channel account as released so the
// deployment can reclaim or merge it.
func (m *Manager) ReleaseChannel(ctx context.Context, txID uuid.UUID) error {
	ca, err := m.channels.GetByTransaction(ctx, txID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup channel for %s: %w", txID, err)
	}
	return m.channels.UpdateStatus(ctx, ca.Address, model.ChannelReleased)
}
