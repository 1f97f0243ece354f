package domain

// Currency represents one entry in the rate table.
// Rate is the quote of one unit of the base currency in this currency.
type Currency struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Rate      float64 `json:"rate"`
	Change24h float64 `json:"change_24h"` // Signed percentage
	Color     string  `json:"color"`     // Display hint, e.g. "#2E7D32"
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (c Currency) ChangeDirection() string {
	if c.Change24h > 0 {
		return "positive"
	}
	if c.Change24h < 0 {
		return "negative"
	}
	return "neutral"
}
