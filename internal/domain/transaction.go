package domain

import "time"

// Transaction is an immutable record of one executed trade.
type Transaction struct {
	ID           string    `json:"id"`
	Kind         TradeKind `json:"kind"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	FromAmount   float64   `json:"from_amount"`
	ToAmount     float64   `json:"to_amount"` // Before fee deduction
	Rate         float64   `json:"rate"`      // Units of ToCurrency per unit of FromCurrency
	Fee          float64   `json:"fee"`       // In FromCurrency units
	Timestamp    time.Time `json:"timestamp"`
}

// Credited returns the amount actually added to the target balance.
func (t Transaction) Credited() float64 {
	if t.Kind.DeductsFee() {
		return t.ToAmount - t.Fee
	}
	return t.ToAmount
}
