//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/anchorline/anchor-engine/internal/store/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *postgres.DB {
	t.Helper()
	url := os.Getenv("TEST_DB_URL")
	if url != "" {
		// Use provided external DB.
		db, err := postgres.New(postgres.Config{
			URL:             url,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	}
	// Use testcontainers (Docker-based ephemeral PostgreSQL).
	return setupTestContainer(t)
}

func seedAsset(t *testing.T, db *postgres.DB) *model.Asset {
	t.Helper()
	repo := postgres.NewAssetRepo(db)
	a := &model.Asset{
		ID:                     uuid.New(),
		Code:                   "AST" + uuid.NewString()[:6],
		Issuer:                 "GISSUERXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		DistributionAccount:    "GDISTXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		DistributionSeedCipher: []byte{0x01, 0x02},
		SignificantDecimals:    7,
		DepositEnabled:         true,
		WithdrawalEnabled:      true,
		DepositFeeFixed:        decimal.RequireFromString("1"),
		DepositFeePercent:      decimal.RequireFromString("0.5"),
		DepositMinAmount:       decimal.RequireFromString("1"),
		DepositMaxAmount:       decimal.RequireFromString("10000"),
	}
	require.NoError(t, repo.Upsert(context.Background(), a))
	// Upsert generates server-side timestamps; re-read for the canonical row.
	got, err := repo.GetByCode(context.Background(), a.Code)
	require.NoError(t, err)
	return got
}

// ---------- AssetRepo ----------

func TestAssetRepo_UpsertAndGet(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewAssetRepo(db)
	ctx := context.Background()

	a := seedAsset(t, db)

	found, err := repo.GetByCode(ctx, a.Code)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.True(t, found.DepositEnabled)
	assert.True(t, found.DepositFeePercent.Equal(decimal.RequireFromString("0.5")))

	// Idempotent upsert keeps the same row.
	a.DepositEnabled = false
	require.NoError(t, repo.Upsert(ctx, a))
	found, err = repo.GetByCode(ctx, a.Code)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.False(t, found.DepositEnabled)

	_, err = repo.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAssetRepo_ListEnabled(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewAssetRepo(db)
	ctx := context.Background()

	enabled := seedAsset(t, db)
	disabled := seedAsset(t, db)
	disabled.DepositEnabled = false
	disabled.WithdrawalEnabled = false
	disabled.SendEnabled = false
	require.NoError(t, repo.Upsert(ctx, disabled))

	list, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	codes := make(map[string]bool, len(list))
	for _, a := range list {
		codes[a.Code] = true
	}
	assert.True(t, codes[enabled.Code])
	assert.False(t, codes[disabled.Code])
}

// ---------- TransactionRepo ----------

func TestTransactionRepo_CreateGetTransition(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()
	asset := seedAsset(t, db)

	tx := model.NewTransaction(model.KindDeposit, asset.ID, "GUSERXXX", decimal.RequireFromString("100"))
	memo := "dep-memo-" + uuid.NewString()[:8]
	tx.AccountMemo = &memo
	require.NoError(t, repo.Create(ctx, tx))

	// Duplicate insert conflicts on the primary key.
	err := repo.Create(ctx, tx)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusIncomplete, got.Status)
	assert.True(t, got.AmountExpected.Equal(decimal.RequireFromString("100")))
	require.NotNil(t, got.AccountMemo)
	assert.Equal(t, memo, *got.AccountMemo)

	// Advance incomplete -> pending_user_transfer_start with a mutator.
	updated, err := repo.Transition(ctx, tx.ID,
		[]model.TransactionStatus{model.StatusIncomplete},
		model.StatusPendingUserTransferStart,
		func(tx *model.Transaction) error {
			msg := "awaiting funds"
			tx.StatusMessage = &msg
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingUserTransferStart, updated.Status)
	require.NotNil(t, updated.StatusMessage)

	// Guard failure: status already moved on.
	_, err = repo.Transition(ctx, tx.ID,
		[]model.TransactionStatus{model.StatusIncomplete},
		model.StatusPendingUserTransferStart, nil)
	assert.ErrorIs(t, err, store.ErrConflict)

	// Graph violation: no backward edge.
	_, err = repo.Transition(ctx, tx.ID,
		[]model.TransactionStatus{model.StatusPendingUserTransferStart},
		model.StatusIncomplete, nil)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestTransactionRepo_TransitionConcurrentWriters(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()
	asset := seedAsset(t, db)

	tx := model.NewTransaction(model.KindDeposit, asset.ID, "GUSERXXX", decimal.RequireFromString("50"))
	tx.Status = model.StatusPendingAnchor
	require.NoError(t, repo.Create(ctx, tx))

	fromSet := []model.TransactionStatus{model.StatusPendingAnchor}
	targets := []model.TransactionStatus{model.StatusPendingStellar, model.StatusPendingExternal}

	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to model.TransactionStatus) {
			defer wg.Done()
			_, errs[i] = repo.Transition(ctx, tx.ID, fromSet, to, nil)
		}(i, to)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected transition error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	final, err := repo.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Contains(t, targets, final.Status)
}

func TestTransactionRepo_ListAndFind(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()
	asset := seedAsset(t, db)

	older := model.NewTransaction(model.KindDeposit, asset.ID, "GUSERXXX", decimal.RequireFromString("10"))
	older.Status = model.StatusPendingExternal
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	memo := "memo-" + uuid.NewString()[:8]
	older.AccountMemo = &memo
	require.NoError(t, repo.Create(ctx, older))

	newer := model.NewTransaction(model.KindWithdrawal, asset.ID, "GUSERXXX", decimal.RequireFromString("20"))
	newer.Status = model.StatusPendingExternal
	require.NoError(t, repo.Create(ctx, newer))

	// Kind filter.
	list, err := repo.ListByStatus(ctx, model.StatusPendingExternal, []model.TransactionKind{model.KindDeposit}, 0)
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool, len(list))
	for _, tx := range list {
		assert.Equal(t, model.KindDeposit, tx.Kind)
		ids[tx.ID] = true
	}
	assert.True(t, ids[older.ID])
	assert.False(t, ids[newer.ID])

	// Oldest first.
	list, err = repo.ListByStatus(ctx, model.StatusPendingExternal, nil, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(list), 2)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].StartedAt.Before(list[i-1].StartedAt))
	}

	// FindByMemo returns the matching row.
	found, err := repo.FindByMemo(ctx, asset.ID, memo)
	require.NoError(t, err)
	assert.Equal(t, older.ID, found.ID)

	_, err = repo.FindByMemo(ctx, asset.ID, "never-used")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransactionRepo_ReadyForSubmission(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewTransactionRepo(db)
	ctx := context.Background()
	asset := seedAsset(t, db)

	waiting := model.NewTransaction(model.KindDeposit, asset.ID, "GUSERXXX", decimal.RequireFromString("10"))
	waiting.Status = model.StatusPendingExternal
	waiting.PendingSignatures = true
	require.NoError(t, repo.Create(ctx, waiting))

	// Not listed while signatures are outstanding.
	list, err := repo.ListReadyForSubmission(ctx, 0)
	require.NoError(t, err)
	for _, tx := range list {
		assert.NotEqual(t, waiting.ID, tx.ID)
	}

	require.NoError(t, repo.SetReadyForSubmission(ctx, waiting.ID))

	list, err = repo.ListReadyForSubmission(ctx, 0)
	require.NoError(t, err)
	ids := make(map[uuid.UUID]bool, len(list))
	for _, tx := range list {
		ids[tx.ID] = true
	}
	assert.True(t, ids[waiting.ID])

	// Second clear conflicts.
	err = repo.SetReadyForSubmission(ctx, waiting.ID)
	assert.ErrorIs(t, err, store.ErrConflict)
}

// ---------- QuoteRepo ----------

func TestQuoteRepo_SetPriceOnce(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewQuoteRepo(db)
	ctx := context.Background()

	q := &model.Quote{
		ID:             uuid.New(),
		Type:           model.QuoteTypeFirm,
		SellAsset:      "iso4217:USD",
		BuyAsset:       "stellar:USDC:GISSUER",
		SellAmount:     decimal.RequireFromString("100"),
		StellarAccount: "GUSERXXX",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, q))

	expires := time.Now().UTC().Add(10 * time.Minute)
	require.NoError(t, repo.SetPrice(ctx, q.ID, decimal.RequireFromString("1.02"), expires))

	got, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Price)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.02")))
	require.NotNil(t, got.ExpiresAt)

	err = repo.SetPrice(ctx, q.ID, decimal.RequireFromString("1.05"), expires)
	assert.ErrorIs(t, err, store.ErrImmutable)

	err = repo.SetPrice(ctx, uuid.New(), decimal.RequireFromString("1.0"), expires)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ---------- ChannelAccountRepo ----------

func TestChannelAccountRepo_ExclusiveBinding(t *testing.T) {
	db := testDB(t)
	txRepo := postgres.NewTransactionRepo(db)
	repo := postgres.NewChannelAccountRepo(db)
	ctx := context.Background()
	asset := seedAsset(t, db)

	tx := model.NewTransaction(model.KindDeposit, asset.ID, "GUSERXXX", decimal.RequireFromString("10"))
	require.NoError(t, txRepo.Create(ctx, tx))

	addr := "GCHAN" + uuid.NewString()[:8]
	require.NoError(t, repo.Create(ctx, &model.ChannelAccount{
		Address:       addr,
		TransactionID: tx.ID,
		Sequence:      42,
		Status:        model.ChannelAssigned,
	}))

	// A second channel for the same transaction conflicts.
	err := repo.Create(ctx, &model.ChannelAccount{
		Address:       "GCHAN" + uuid.NewString()[:8],
		TransactionID: tx.ID,
		Sequence:      43,
		Status:        model.ChannelAssigned,
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := repo.GetByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, int64(42), got.Sequence)

	require.NoError(t, repo.UpdateStatus(ctx, addr, model.ChannelSubmitted))
	got, err = repo.GetByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelSubmitted, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "GNOSUCH", model.ChannelReleased), store.ErrNotFound)
}

// ---------- CursorRepo ----------

func TestCursorRepo_GetSet(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewCursorRepo(db)
	ctx := context.Background()

	account := "GACC" + uuid.NewString()[:8]

	cursor, err := repo.Get(ctx, account)
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, repo.Set(ctx, account, "12345-1"))
	require.NoError(t, repo.Set(ctx, account, "12345-2"))

	cursor, err = repo.Get(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, "12345-2", cursor)
}
