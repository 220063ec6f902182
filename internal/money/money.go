// Package money provides fixed-point decimal helpers for USDT balance and
// settlement arithmetic. Ledger and order amounts are always stored and
// compared as two-decimal shopspring/decimal values; float64 is reserved for
// Stratum-side difficulty and hashrate math where spec-mandated precision
// does not matter.
package money

import (
	"github.com/shopspring/decimal"
)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// CommissionRate is the platform's cut of every order subtotal (3%).
var CommissionRate = decimal.NewFromFloat(0.03)

// WithdrawFee is the flat fee charged on every withdrawal.
var WithdrawFee = decimal.NewFromFloat(0.50)

// WithdrawApprovalThreshold is the amount above which a withdrawal requires
// admin approval before it leaves "pending" state.
var WithdrawApprovalThreshold = decimal.NewFromInt(500)

// Round2 quantizes an amount to two decimal places using half-even
// (banker's) rounding, matching the settlement rule in the commission and
// partial-settlement calculations.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// FromString parses a decimal string, returning Zero on malformed input.
// Callers that must distinguish malformed input from a genuine zero should
// use decimal.NewFromString directly.
func FromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero
	}
	return d
}

// Commission computes round2(subtotal * CommissionRate).
func Commission(subtotal decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(CommissionRate))
}
