package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset is a Stellar asset the anchor issues or distributes, together with
// its off-chain rails configuration. The distribution seed is stored
// encrypted (AES-GCM) and is only ever decrypted in memory by the registry.
type Asset struct {
	ID     uuid.UUID `db:"id"`
	Code   string    `db:"code"`
	Issuer string    `db:"issuer"`

	DistributionAccount    string `db:"distribution_account"`
	DistributionSeedCipher []byte `db:"distribution_seed_cipher"`

	// SignificantDecimals bounds every amount written for this asset.
	SignificantDecimals int32 `db:"significant_decimals"`

	DepositEnabled    bool `db:"deposit_enabled"`
	WithdrawalEnabled bool `db:"withdrawal_enabled"`
	SendEnabled       bool `db:"send_enabled"`

	DepositFeeFixed      decimal.Decimal `db:"deposit_fee_fixed"`
	DepositFeePercent    decimal.Decimal `db:"deposit_fee_percent"`
	DepositMinAmount     decimal.Decimal `db:"deposit_min_amount"`
	DepositMaxAmount     decimal.Decimal `db:"deposit_max_amount"`
	WithdrawalFeeFixed   decimal.Decimal `db:"withdrawal_fee_fixed"`
	WithdrawalFeePercent decimal.Decimal `db:"withdrawal_fee_percent"`
	WithdrawalMinAmount  decimal.Decimal `db:"withdrawal_min_amount"`
	WithdrawalMaxAmount  decimal.Decimal `db:"withdrawal_max_amount"`
	SendFeeFixed         decimal.Decimal `db:"send_fee_fixed"`
	SendFeePercent       decimal.Decimal `db:"send_fee_percent"`
	SendMinAmount        decimal.Decimal `db:"send_min_amount"`
	SendMaxAmount        decimal.Decimal `db:"send_max_amount"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FeeFixed returns the fixed fee component for the given operation kind.
func (a *Asset) FeeFixed(kind TransactionKind) decimal.Decimal {
	switch kind {
	case KindDeposit:
		return a.DepositFeeFixed
	case KindWithdrawal:
		return a.WithdrawalFeeFixed
	case KindSend:
		return a.SendFeeFixed
	}
	return decimal.Zero
}

// FeePercent returns the percentage fee component for the given operation kind.
func (a *Asset) FeePercent(kind TransactionKind) decimal.Decimal {
	switch kind {
	case KindDeposit:
		return a.DepositFeePercent
	case KindWithdrawal:
		return a.WithdrawalFeePercent
	case KindSend:
		return a.SendFeePercent
	}
	return decimal.Zero
}

// AmountBounds returns the configured min/max amounts for the given kind.
// A zero max means unbounded.
func (a *Asset) AmountBounds(kind TransactionKind) (min, max decimal.Decimal) {
	switch kind {
	case KindDeposit:
		return a.DepositMinAmount, a.DepositMaxAmount
	case KindWithdrawal:
		return a.WithdrawalMinAmount, a.WithdrawalMaxAmount
	case KindSend:
		return a.SendMinAmount, a.SendMaxAmount
	}
	return decimal.Zero, decimal.Zero
}

// OperationEnabled reports whether the given kind is enabled for this asset.
func (a *Asset) OperationEnabled(kind TransactionKind) bool {
	switch kind {
	case KindDeposit:
		return a.DepositEnabled
	case KindWithdrawal:
		return a.WithdrawalEnabled
	case KindSend:
		return a.SendEnabled
	}
	return false
}
