// Package pricing computes checkout totals. Amounts are decimal; tax is
// display-only and never persisted with an order.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	TaxRate = decimal.RequireFromString("0.07")

	ErrInvalidRate = errors.New("external rate must be positive")
)

const (
	taxPlaces      = 2
	externalPlaces = 6
)

type Line struct {
	Price    decimal.Decimal
	Quantity uint
}

type Quote struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Rate          decimal.Decimal `json:"external_rate"`
	TotalExternal decimal.Decimal `json:"total_external"`
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(taxPlaces)
}

// NewQuote prices lines against rate, expressed as currency units per one
// unit of the external asset.
func NewQuote(lines []Line, rate decimal.Decimal) (Quote, error) {
	if !rate.IsPositive() {
		return Quote{}, ErrInvalidRate
	}

	subtotal := Subtotal(lines)
	tax := Tax(subtotal)
	total := subtotal.Add(tax)

	return Quote{
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         total,
		Rate:          rate,
		TotalExternal: total.DivRound(rate, externalPlaces),
	}, nil
}
