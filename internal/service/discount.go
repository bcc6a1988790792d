package service

import (
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/enum"
)

// ApplyDiscount computes the discount amount for a subtotal. Percentage
// discounts take value as a percent of the subtotal; fixed discounts take
// value directly. The result is rounded to cents before clamping to
// [0, subtotal], so subtotal - ApplyDiscount(...) is exactly the total that
// gets persisted. Unknown types discount nothing.
func ApplyDiscount(subtotal decimal.Decimal, discountType string, value decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch discountType {
	case enum.DiscountTypePercentage:
		amount = subtotal.Mul(value).Div(decimal.NewFromInt(100))
	case enum.DiscountTypeFixed:
		amount = value
	default:
		return decimal.Zero
	}

	amount = amount.Round(2)
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}
