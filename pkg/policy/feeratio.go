package policy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NCGPrecision is the number of decimal places the destination token
// carries. Fees are truncated toward zero to this precision, once, on the
// final value.
const NCGPrecision = 2

// FeeRatioPolicy computes the exchange fee for a transfer amount.
type FeeRatioPolicy interface {
	Apply(amount decimal.Decimal) (decimal.Decimal, error)
}

// FixedExchangeFeeRatioPolicy is a three-tier fee schedule:
//
//	amount <= criterion                 -> baseFee
//	criterion < amount <= dividerAmount -> amount * range1Ratio
//	dividerAmount < amount <= maximum   -> amount * range2Ratio
//
// Amounts above maximum are rejected upstream by the observer's bounds
// check, so Apply failing on them signals a programming error rather than
// a business outcome.
type FixedExchangeFeeRatioPolicy struct {
	maximumAmount decimal.Decimal
	dividerAmount decimal.Decimal
	criterion     decimal.Decimal
	baseFee       decimal.Decimal
	range1Ratio   decimal.Decimal
	range2Ratio   decimal.Decimal
}

// NewFixedExchangeFeeRatioPolicy validates the schedule ordering
// baseFee < criterion <= dividerAmount <= maximumAmount at construction.
func NewFixedExchangeFeeRatioPolicy(
	maximumAmount, dividerAmount, criterion, baseFee, range1Ratio, range2Ratio decimal.Decimal,
) (*FixedExchangeFeeRatioPolicy, error) {
	if baseFee.GreaterThanOrEqual(criterion) {
		return nil, fmt.Errorf("base fee %s should be less than base fee criterion %s", baseFee, criterion)
	}
	if criterion.GreaterThan(dividerAmount) {
		return nil, fmt.Errorf("base fee criterion %s should be less than or equal fee range divider amount %s", criterion, dividerAmount)
	}
	if dividerAmount.GreaterThan(maximumAmount) {
		return nil, fmt.Errorf("fee range divider amount %s should be less than or equal maximum amount %s", dividerAmount, maximumAmount)
	}
	return &FixedExchangeFeeRatioPolicy{
		maximumAmount: maximumAmount,
		dividerAmount: dividerAmount,
		criterion:     criterion,
		baseFee:       baseFee,
		range1Ratio:   range1Ratio,
		range2Ratio:   range2Ratio,
	}, nil
}

// Apply returns the fee for amount per the tiered schedule.
func (p *FixedExchangeFeeRatioPolicy) Apply(amount decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case amount.LessThanOrEqual(p.criterion):
		return p.baseFee, nil
	case amount.LessThanOrEqual(p.dividerAmount):
		return amount.Mul(p.range1Ratio).Truncate(NCGPrecision), nil
	case amount.LessThanOrEqual(p.maximumAmount):
		return amount.Mul(p.range2Ratio).Truncate(NCGPrecision), nil
	default:
		return decimal.Zero, fmt.Errorf("amount %s exceeds policy maximum %s", amount, p.maximumAmount)
	}
}
