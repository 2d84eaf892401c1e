// Package pricing computes order totals. Accumulation is exact decimal
// arithmetic; two-digit half-up rounding happens once, where amounts become
// part of the persisted order.
package pricing

import (
	"marketim/internal/model"

	"github.com/shopspring/decimal"
)

// Quote is the priced view of an order before persistence.
type Quote struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Subtotal sums line totals over the merged lines without rounding.
func Subtotal(lines []model.OrderLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	return subtotal
}

// DeliveryFee is zero once the subtotal reaches the free-delivery threshold,
// otherwise the fixed fee.
func DeliveryFee(subtotal, freeThreshold, fixedFee decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(freeThreshold) {
		return decimal.Zero
	}
	return fixedFee
}

// CheckMinimum rejects subtotals under the configured minimum. A minimum of
// zero disables the check.
func CheckMinimum(subtotal, minOrderAmount decimal.Decimal) error {
	if minOrderAmount.IsPositive() && subtotal.LessThan(minOrderAmount) {
		return model.NewBelowMinimumOrder(minOrderAmount.String())
	}
	return nil
}

// Calculate prices the merged lines, rounding each amount to two fraction
// digits at this boundary.
func Calculate(lines []model.OrderLine, freeThreshold, fixedFee decimal.Decimal) Quote {
	subtotal := Subtotal(lines)
	fee := DeliveryFee(subtotal, freeThreshold, fixedFee)

	subtotal = subtotal.Round(2)
	fee = fee.Round(2)

	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}
