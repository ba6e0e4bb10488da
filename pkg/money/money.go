// Package money centralizes the rounding rules for monetary values.
// Amounts accumulate as exact decimals and round to cents only where a
// per-line price is shown or a total crosses the wire.
package money

import "github.com/shopspring/decimal"

const centPlaces = 2

// Cents rounds an amount to two decimal places.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(centPlaces)
}

// LineTotal multiplies a unit price by a quantity and rounds the result to
// cents, matching the per-line price the user sees.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Cents(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds the given amounts and rounds the result to cents.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return Cents(total)
}
