package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a payment operation observed on the ledger for a distribution
// account. PagingToken is the stream resume cursor.
type Payment struct {
	OperationID string
	PagingToken string
	TxHash      string

	From      string
	To        string
	ToMuxedID *uint64

	AssetType   string
	AssetCode   string
	AssetIssuer string
	Amount      decimal.Decimal

	Memo     *string
	MemoType string

	Successful bool
	CreatedAt  time.Time
}
