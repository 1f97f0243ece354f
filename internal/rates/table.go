// Package rates holds the star-shaped quote table: every currency is quoted
// only against the base currency, and cross conversions hop through base.
package rates

import (
	"fmt"

	"fxwallet/internal/domain"
	"fxwallet/pkg/safe"
)

// Table is an immutable snapshot of all registered currencies.
// Refreshes build a new Table and swap it in; a Table is never mutated.
type Table struct {
	base       string
	currencies []domain.Currency
	index      map[string]int
}

// NewTable validates currencies and builds a table quoted against base.
// The base entry is pinned to rate 1 and change 0 regardless of input.
func NewTable(base string, currencies []domain.Currency) (*Table, error) {
	t := &Table{
		base:       base,
		currencies: make([]domain.Currency, len(currencies)),
		index:      make(map[string]int, len(currencies)),
	}
	copy(t.currencies, currencies)

	for i := range t.currencies {
		c := &t.currencies[i]
		if c.Code == "" {
			return nil, fmt.Errorf("currency at position %d has empty code", i)
		}
		if _, dup := t.index[c.Code]; dup {
			return nil, fmt.Errorf("duplicate currency code %s", c.Code)
		}
		t.index[c.Code] = i

		if c.Code == base {
			c.Rate = 1
			c.Change24h = 0
			continue
		}
		if !safe.IsFinitePositive(c.Rate) {
			return nil, fmt.Errorf("currency %s: rate must be finite and positive, got %v", c.Code, c.Rate)
		}
		if !safe.IsFinite(c.Change24h) {
			return nil, fmt.Errorf("currency %s: change must be finite, got %v", c.Code, c.Change24h)
		}
	}

	if _, ok := t.index[base]; !ok {
		return nil, fmt.Errorf("base currency %s is not registered", base)
	}
	return t, nil
}

// Base returns the base currency code.
func (t *Table) Base() string { return t.base }

// Len returns the number of registered currencies.
func (t *Table) Len() int { return len(t.currencies) }

// Has reports whether code is registered.
func (t *Table) Has(code string) bool {
	_, ok := t.index[code]
	return ok
}

// Rate returns the quote of one base unit in code; (0, false) if unknown.
func (t *Table) Rate(code string) (float64, bool) {
	i, ok := t.index[code]
	if !ok {
		return 0, false
	}
	return t.currencies[i].Rate, true
}

// Lookup returns a copy of the currency entry for code.
func (t *Table) Lookup(code string) (domain.Currency, bool) {
	i, ok := t.index[code]
	if !ok {
		return domain.Currency{}, false
	}
	return t.currencies[i], true
}

// Currencies returns a copy of all entries in registration order.
func (t *Table) Currencies() []domain.Currency {
	out := make([]domain.Currency, len(t.currencies))
	copy(out, t.currencies)
	return out
}

// Convert maps amount of from into to, routing through the base currency.
// Unknown codes quote as 0, which makes the result 0. A non-finite amount
// between known codes propagates unchanged in kind. No rounding is applied.
func (t *Table) Convert(amount float64, from, to string) float64 {
	fromRate, fromOK := t.Rate(from)
	toRate, toOK := t.Rate(to)

	if !fromOK || !toOK {
		return 0
	}
	if from == to {
		return amount
	}

	switch {
	case from == t.base:
		return amount * toRate
	case to == t.base:
		return safe.Div(amount, fromRate)
	default:
		return safe.Div(amount, fromRate) * toRate
	}
}
