// Package fee computes per-transaction fees from the asset's fixed and
// percentage schedule.
package fee

import (
	"errors"
	"fmt"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Policy selects how the fee relates to the amounts.
type Policy string

const (
	// PolicySubtractive deducts the fee from the received amount:
	// amount_out = amount_in - fee.
	PolicySubtractive Policy = "subtractive"

	// PolicyAdditive charges the fee on top: amount_out = amount_in and the
	// user's rail-side debit is amount_in + fee.
	PolicyAdditive Policy = "additive"
)

var (
	ErrAmountTooSmall  = errors.New("fee: amount below asset minimum")
	ErrAmountTooLarge  = errors.New("fee: amount above asset maximum")
	ErrFeeExceedsInput = errors.New("fee: fee is not smaller than the amount")
)

// Breakdown is a computed fee application. AmountIn, AmountOut and Fee are
// all rounded to the asset's significant decimals and satisfy
// AmountIn = AmountOut + Fee under the subtractive policy.
type Breakdown struct {
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
	Fee       decimal.Decimal
}

// Calculator applies an asset's fee schedule under a fixed policy.
type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) (*Calculator, error) {
	switch policy {
	case PolicySubtractive, PolicyAdditive:
		return &Calculator{policy: policy}, nil
	default:
		return nil, fmt.Errorf("fee: unknown policy %q", policy)
	}
}

func (c *Calculator) Policy() Policy {
	return c.policy
}

// Fee computes fixed + percent-of-amount, rounded half-up to the asset's
// significant decimals. The fee is rounded before the amounts are derived
// from it, so the amount identity holds exactly.
func (c *Calculator) Fee(asset *model.Asset, kind model.TransactionKind, amount decimal.Decimal) decimal.Decimal {
	percent := asset.FeePercent(kind).Div(decimal.NewFromInt(100))
	raw := asset.FeeFixed(kind).Add(amount.Mul(percent))
	return raw.Round(asset.SignificantDecimals)
}

// Apply computes the full breakdown for the amount actually received.
func (c *Calculator) Apply(asset *model.Asset, kind model.TransactionKind, amountIn decimal.Decimal) (*Breakdown, error) {
	amountIn = amountIn.Round(asset.SignificantDecimals)
	fee := c.Fee(asset, kind, amountIn)

	var out decimal.Decimal
	switch c.policy {
	case PolicySubtractive:
		out = amountIn.Sub(fee)
		if !out.IsPositive() {
			return nil, fmt.Errorf("%w: amount %s, fee %s", ErrFeeExceedsInput, amountIn, fee)
		}
	case PolicyAdditive:
		out = amountIn
	}
	return &Breakdown{AmountIn: amountIn, AmountOut: out, Fee: fee}, nil
}

// ValidateAmount checks the amount against the asset's configured bounds for
// the operation kind. A zero maximum means unbounded.
func (c *Calculator) ValidateAmount(asset *model.Asset, kind model.TransactionKind, amount decimal.Decimal) error {
	min, max := asset.AmountBounds(kind)
	if amount.LessThan(min) {
		return fmt.Errorf("%w: %s < %s", ErrAmountTooSmall, amount, min)
	}
	if max.IsPositive() && amount.GreaterThan(max) {
		return fmt.Errorf("%w: %s > %s", ErrAmountTooLarge, amount, max)
	}
	return nil
}
