package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindSend       TransactionKind = "send"
)

func (k TransactionKind) String() string {
	return string(k)
}

type MemoType string

const (
	MemoTypeText MemoType = "text"
	MemoTypeID   MemoType = "id"
	MemoTypeHash MemoType = "hash"
)

// Transaction is the authoritative record of a single deposit, withdrawal,
// or cross-border payment. Rows are never deleted; terminal statuses
// (completed, refunded, error) stamp them closed.
//
// Amounts are NUMERIC in the store and decimal in memory. AmountOut and
// AmountFee stay nil until the fee is known; the store rejects writes that
// set AmountOut without AmountFee.
type Transaction struct {
	ID            uuid.UUID         `db:"id"`
	Kind          TransactionKind   `db:"kind"`
	Status        TransactionStatus `db:"status"`
	StatusMessage *string           `db:"status_message"`

	AssetID uuid.UUID `db:"asset_id"`

	AmountExpected decimal.Decimal  `db:"amount_expected"`
	AmountIn       *decimal.Decimal `db:"amount_in"`
	AmountOut      *decimal.Decimal `db:"amount_out"`
	AmountFee      *decimal.Decimal `db:"amount_fee"`
	// SEP-38 asset identifiers for the in/out/fee denominations. Only set
	// when a quote is attached and the sides differ.
	AmountInAsset  *string `db:"amount_in_asset"`
	AmountOutAsset *string `db:"amount_out_asset"`
	AmountFeeAsset *string `db:"amount_fee_asset"`

	// On-chain counterparty. MuxedAccount and AccountMemo disambiguate
	// shared/pooled accounts.
	StellarAccount string   `db:"stellar_account"`
	MuxedAccount   *string  `db:"muxed_account"`
	AccountMemo    *string  `db:"account_memo"`
	MemoType       MemoType `db:"memo_type"`

	ToAddress   *string `db:"to_address"`
	FromAddress *string `db:"from_address"`

	// Channel-account submission only: the partially signed envelope and
	// the source sequence captured at build time.
	EnvelopeXDR       *string `db:"envelope_xdr"`
	SequenceNumber    *int64  `db:"sequence_number"`
	PendingSignatures bool    `db:"pending_signatures"`

	StellarTransactionID  *string `db:"stellar_transaction_id"`
	ExternalTransactionID *string `db:"external_transaction_id"`

	OnChangeCallback *string `db:"on_change_callback"`

	Refunded bool       `db:"refunded"`
	QuoteID  *uuid.UUID `db:"quote_id"`

	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// NewTransaction builds a transaction in the incomplete status. Callers
// persist it via the transaction store and then advance it with Transition.
func NewTransaction(kind TransactionKind, assetID uuid.UUID, stellarAccount string, amountExpected decimal.Decimal) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:             uuid.New(),
		Kind:           kind,
		Status:         StatusIncomplete,
		AssetID:        assetID,
		AmountExpected: amountExpected,
		StellarAccount: stellarAccount,
		MemoType:       MemoTypeHash,
		CreatedAt:      now,
		UpdatedAt:      now,
		StartedAt:      now,
	}
}

// Clone returns a deep enough copy for copy-on-write stores: pointer fields
// are duplicated so mutators cannot alias the stored record.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.StatusMessage = cloneString(t.StatusMessage)
	c.AmountIn = cloneDecimal(t.AmountIn)
	c.AmountOut = cloneDecimal(t.AmountOut)
	c.AmountFee = cloneDecimal(t.AmountFee)
	c.AmountInAsset = cloneString(t.AmountInAsset)
	c.AmountOutAsset = cloneString(t.AmountOutAsset)
	c.AmountFeeAsset = cloneString(t.AmountFeeAsset)
	c.MuxedAccount = cloneString(t.MuxedAccount)
	c.AccountMemo = cloneString(t.AccountMemo)
	c.ToAddress = cloneString(t.ToAddress)
	c.FromAddress = cloneString(t.FromAddress)
	c.EnvelopeXDR = cloneString(t.EnvelopeXDR)
	c.StellarTransactionID = cloneString(t.StellarTransactionID)
	c.ExternalTransactionID = cloneString(t.ExternalTransactionID)
	c.OnChangeCallback = cloneString(t.OnChangeCallback)
	if t.SequenceNumber != nil {
		v := *t.SequenceNumber
		c.SequenceNumber = &v
	}
	if t.QuoteID != nil {
		v := *t.QuoteID
		c.QuoteID = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
