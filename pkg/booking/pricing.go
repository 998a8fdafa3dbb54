package booking

import "github.com/shopspring/decimal"

var taxRate = decimal.New(10, -2)

// PriceQuote is the exact breakdown of a stay's price.
type PriceQuote struct {
	Nights   int64
	Subtotal Money
	Tax      Money
	Total    Money
}

// CalculatePrice computes subtotal = rate x nights, tax = 10% of subtotal, total = subtotal + tax.
func CalculatePrice(nightlyRate Money, stay StayRange) PriceQuote {
	nights := stay.Nights()
	subtotal := nightlyRate.Times(nights)
	tax := subtotal.Scale(taxRate)
	return PriceQuote{
		Nights:   nights,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// TaxRate returns the tax applied on top of the subtotal.
func TaxRate() decimal.Decimal {
	return taxRate
}
