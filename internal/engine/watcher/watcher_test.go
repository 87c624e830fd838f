package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/fee"
	"github.com/anchorline/anchor-engine/internal/registry"
	"github.com/anchorline/anchor-engine/internal/stellar"
	stellarmocks "github.com/anchorline/anchor-engine/internal/stellar/mocks"
	"github.com/anchorline/anchor-engine/internal/store/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	txs     *memory.TransactionStore
	cursors *memory.CursorRepo
	client  *stellarmocks.MockClient
	asset   *model.Asset
	watcher *Watcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		txs:     memory.NewTransactionStore(),
		cursors: memory.NewCursorRepo(),
		client:  stellarmocks.NewMockClient(ctrl),
	}

	assetRepo := memory.NewAssetRepo()
	f.asset = &model.Asset{
		ID:                  uuid.New(),
		Code:                "USDC",
		Issuer:              "GISSUER",
		DistributionAccount: "GDIST",
		SignificantDecimals: 7,
		WithdrawalFeeFixed:  decimal.RequireFromString("1"),
		WithdrawalEnabled:   true,
		SendEnabled:         true,
	}
	require.NoError(t, assetRepo.Upsert(context.Background(), f.asset))

	assets := registry.New(assetRepo, nil, time.Minute, nil)
	require.NoError(t, assets.Load(context.Background()))

	fees, err := fee.NewCalculator(fee.PolicySubtractive)
	require.NoError(t, err)

	f.watcher = New(f.client, f.txs, f.cursors, assets, fees, nil, nil)
	return f
}

func (f *fixture) waitingTx(t *testing.T, kind model.TransactionKind, status model.TransactionStatus, memo string) *model.Transaction {
	t.Helper()
	tx := model.NewTransaction(kind, f.asset.ID, "GUSER", decimal.RequireFromString("100"))
	tx.Status = status
	tx.AccountMemo = &memo
	require.NoError(t, f.txs.Create(context.Background(), tx))
	return tx
}

func payment(memo, token string, amount string) *model.Payment {
	m := memo
	return &model.Payment{
		OperationID: "op-" + token,
		PagingToken: token,
		TxHash:      "hash-" + token,
		From:        "GSENDER",
		To:          "GDIST",
		AssetType:   "credit_alphanum4",
		AssetCode:   "USDC",
		AssetIssuer: "GISSUER",
		Amount:      decimal.RequireFromString(amount),
		Memo:        &m,
		MemoType:    "hash",
		Successful:  true,
		CreatedAt:   time.Now().UTC(),
	}
}

// streamOnce feeds the given payments through the handler, then cancels the
// watcher so Run returns.
func streamOnce(cancel context.CancelFunc, payments ...*model.Payment) func(ctx context.Context, account, cursor string, handler stellar.PaymentHandler) error {
	return func(ctx context.Context, account, cursor string, handler stellar.PaymentHandler) error {
		for _, p := range payments {
			if err := handler(ctx, p); err != nil {
				return err
			}
		}
		cancel()
		return ctx.Err()
	}
}

func TestWatcher_WithdrawalPaymentMatched(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	tx := f.waitingTx(t, model.KindWithdrawal, model.StatusPendingUserTransferStart, "memo-1")

	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "", gomock.Any()).
		DoAndReturn(streamOnce(cancel, payment("memo-1", "101", "100")))

	err := f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.txs.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingAnchor, got.Status)
	require.NotNil(t, got.AmountIn)
	assert.True(t, got.AmountIn.Equal(decimal.RequireFromString("100")))
	require.NotNil(t, got.AmountFee)
	assert.True(t, got.AmountFee.Equal(decimal.RequireFromString("1")))
	require.NotNil(t, got.AmountOut)
	assert.True(t, got.AmountOut.Equal(decimal.RequireFromString("99")))
	require.NotNil(t, got.StellarTransactionID)
	assert.Equal(t, "hash-101", *got.StellarTransactionID)
	require.NotNil(t, got.FromAddress)
	assert.Equal(t, "GSENDER", *got.FromAddress)

	// Cursor advanced to the last observed payment.
	cursor, err := f.cursors.Get(context.Background(), "GDIST")
	require.NoError(t, err)
	assert.Equal(t, "101", cursor)
}

func TestWatcher_SendPaymentMatched(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	tx := f.waitingTx(t, model.KindSend, model.StatusPendingSender, "memo-2")

	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "", gomock.Any()).
		DoAndReturn(streamOnce(cancel, payment("memo-2", "55", "42")))

	err := f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.txs.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingReceiver, got.Status)
}

func TestWatcher_MuxedPaymentMatched(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Pooled-account withdrawal registered under the muxed id.
	tx := f.waitingTx(t, model.KindWithdrawal, model.StatusPendingUserTransferStart, "654321")

	muxedID := uint64(654321)
	p := payment("", "31", "100")
	p.Memo = nil
	p.ToMuxedID = &muxedID

	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "", gomock.Any()).
		DoAndReturn(streamOnce(cancel, p))

	err := f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.txs.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingAnchor, got.Status)
}

func TestWatcher_UnmatchedPaymentsDropped(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Completed transaction for the memo: the payment must not touch it.
	done := f.waitingTx(t, model.KindWithdrawal, model.StatusPendingUserTransferStart, "memo-3")
	_, err := f.txs.Transition(ctx, done.ID,
		[]model.TransactionStatus{model.StatusPendingUserTransferStart},
		model.StatusError,
		func(tx *model.Transaction) error {
			msg := "expired"
			tx.StatusMessage = &msg
			return nil
		})
	require.NoError(t, err)

	wrongIssuer := payment("memo-3", "1", "10")
	wrongIssuer.AssetIssuer = "GFAKE"

	noMemo := payment("", "2", "10")
	noMemo.Memo = nil

	failed := payment("memo-3", "3", "10")
	failed.Successful = false

	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "", gomock.Any()).
		DoAndReturn(streamOnce(cancel,
			wrongIssuer,
			noMemo,
			failed,
			payment("memo-unknown", "4", "10"),
			payment("memo-3", "5", "10"), // terminal status
		))

	err = f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.txs.Get(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Nil(t, got.StellarTransactionID)

	// Cursor still advanced past dropped payments.
	cursor, err := f.cursors.Get(context.Background(), "GDIST")
	require.NoError(t, err)
	assert.Equal(t, "5", cursor)
}

func TestWatcher_ResumesFromStoredCursor(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.cursors.Set(ctx, "GDIST", "987"))

	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "987", gomock.Any()).
		DoAndReturn(streamOnce(cancel))

	err := f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_ReconnectsAfterStreamDrop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	tx := f.waitingTx(t, model.KindWithdrawal, model.StatusPendingUserTransferStart, "memo-9")

	// First connection delivers one payment then drops; the second is where
	// the test cancels. Reconnect resumes from the persisted cursor.
	first := f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "", gomock.Any()).
		DoAndReturn(func(ctx context.Context, account, cursor string, handler stellar.PaymentHandler) error {
			require.NoError(t, handler(ctx, payment("memo-9", "7", "100")))
			return assert.AnError
		})
	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "7", gomock.Any()).
		After(first).
		DoAndReturn(streamOnce(cancel))

	err := f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.txs.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingAnchor, got.Status)
}

func TestWatcher_FeeSwallowsAmount_MovesToError(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	tx := f.waitingTx(t, model.KindWithdrawal, model.StatusPendingUserTransferStart, "memo-tiny")

	// Fixed fee is 1; a 0.5 payment cannot cover it.
	f.client.EXPECT().
		StreamPayments(gomock.Any(), "GDIST", "", gomock.Any()).
		DoAndReturn(streamOnce(cancel, payment("memo-tiny", "8", "0.5")))

	err := f.watcher.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := f.txs.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
	require.NotNil(t, got.StatusMessage)
}
