// Package money converts integer minor units into display amounts.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
)

const DefaultCurrency = "USD"

// Decimal returns the major-unit value of an amount expressed in minor units (cents).
func Decimal(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}

// Format renders minor units as a display string: "$22.00" for USD, "22.00 EUR" otherwise.
func Format(minor int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	amount := Decimal(minor)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	if currency == "" || currency == DefaultCurrency {
		return sign + "$" + amount.StringFixed(2)
	}
	return sign + amount.StringFixed(2) + " " + currency
}

// FormatUSD renders minor units as US dollars.
func FormatUSD(minor int64) string {
	return Format(minor, DefaultCurrency)
}

// FromSquare extracts minor units and the currency from a Square money object. Missing
// fields default to zero and USD.
func FromSquare(m *sq.Money) (int64, string) {
	if m == nil {
		return 0, DefaultCurrency
	}
	var amount int64
	if m.Amount != nil {
		amount = *m.Amount
	}
	currency := DefaultCurrency
	if m.Currency != nil && *m.Currency != "" {
		currency = string(*m.Currency)
	}
	return amount, currency
}

// FormatSquare renders a Square money object.
func FormatSquare(m *sq.Money) string {
	amount, currency := FromSquare(m)
	return Format(amount, currency)
}
