// Package registry holds the engine's in-memory view of the anchor's enabled
// assets, refreshed from the store on an interval.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
)

// Registry caches enabled assets by code and id. Reads are served from
// memory; Run refreshes the view periodically so asset enable/disable and
// fee schedule changes take effect without a restart.
type Registry struct {
	assets   store.AssetRepository
	cipher   *SeedCipher
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	byCode map[string]*model.Asset
	byID   map[uuid.UUID]*model.Asset
}

func New(assets store.AssetRepository, cipher *SeedCipher, refreshInterval time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		assets:   assets,
		cipher:   cipher,
		interval: refreshInterval,
		logger:   logger.With("component", "registry"),
		byCode:   make(map[string]*model.Asset),
		byID:     make(map[uuid.UUID]*model.Asset),
	}
}

// Load replaces the cached view with the store's current enabled assets.
func (r *Registry) Load(ctx context.Context) error {
	assets, err := r.assets.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list enabled assets: %w", err)
	}

	byCode := make(map[string]*model.Asset, len(assets))
	byID := make(map[uuid.UUID]*model.Asset, len(assets))
	for _, a := range assets {
		byCode[a.Code] = a
		byID[a.ID] = a
	}

	r.mu.Lock()
	r.byCode = byCode
	r.byID = byID
	r.mu.Unlock()

	r.logger.Info("asset registry loaded", "assets", len(assets))
	return nil
}

// Run refreshes the registry on its interval until ctx is done. Refresh
// failures keep the previous view and are logged, not fatal.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("registry stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Load(ctx); err != nil {
				r.logger.Error("registry refresh failed", "error", err)
			}
		}
	}
}

// ByCode returns the enabled asset with the given code.
func (r *Registry) ByCode(code string) (*model.Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byCode[code]
	return a, ok
}

// ByID returns the enabled asset with the given id.
func (r *Registry) ByID(id uuid.UUID) (*model.Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// MatchIssued returns the enabled asset matching an observed payment's
// code and issuer.
func (r *Registry) MatchIssued(code, issuer string) (*model.Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byCode[code]
	if !ok || a.Issuer != issuer {
		return nil, false
	}
	return a, true
}

// DistributionAccounts returns the distinct distribution account addresses
// across enabled assets, for the payment watcher.
func (r *Registry) DistributionAccounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.byCode))
	var out []string
	for _, a := range r.byCode {
		if _, dup := seen[a.DistributionAccount]; dup {
			continue
		}
		seen[a.DistributionAccount] = struct{}{}
		out = append(out, a.DistributionAccount)
	}
	return out
}

// DistributionSeed decrypts the asset's distribution seed. The plaintext
// must not be retained by callers.
func (r *Registry) DistributionSeed(asset *model.Asset) (string, error) {
	if r.cipher == nil {
		return "", fmt.Errorf("registry has no seed cipher configured")
	}
	return r.cipher.Decrypt(asset.DistributionSeedCipher)
}

// SeedFor resolves the signing seed for a distribution account the anchor
// controls. Channel accounts and foreign accounts are not ours to sign for.
func (r *Registry) SeedFor(sourceAccount string) (string, error) {
	r.mu.RLock()
	var match *model.Asset
	for _, a := range r.byCode {
		if a.DistributionAccount == sourceAccount && len(a.DistributionSeedCipher) > 0 {
			match = a
			break
		}
	}
	r.mu.RUnlock()

	if match == nil {
		return "", fmt.Errorf("no seed held for account %s", sourceAccount)
	}
	return r.DistributionSeed(match)
}
