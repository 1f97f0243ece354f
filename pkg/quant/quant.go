package quant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AmountPlaces is the number of decimal places used when displaying balances.
	AmountPlaces = 2
	// RatePlaces is the number of decimal places used when displaying quotes.
	RatePlaces = 6
)

// ParseAmount converts a numeric string (from an API or CLI boundary) to float64.
// Parsing goes through a fixed-point decimal so inputs like "0.1" are not
// subject to binary float parsing quirks beyond the final conversion.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// FormatAmount renders f with a fixed number of decimal places.
func FormatAmount(f float64, places int32) string {
	return decimal.NewFromFloat(f).StringFixed(places)
}

// FormatMoney renders f prefixed with a currency symbol, e.g. "₹1000.00".
func FormatMoney(symbol string, f float64) string {
	if f < 0 {
		return "-" + symbol + FormatAmount(-f, AmountPlaces)
	}
	return symbol + FormatAmount(f, AmountPlaces)
}

// FormatPercent renders a signed percentage with two places, e.g. "+0.12%".
func FormatPercent(f float64) string {
	d := decimal.NewFromFloat(f).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}
