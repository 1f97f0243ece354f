package execution

import (
	"fmt"

	"fxwallet/internal/domain"
	"fxwallet/internal/rates"
	"fxwallet/pkg/safe"
)

// DefaultFeeRate is applied to every kind unless configured otherwise.
const DefaultFeeRate = 0.002

// FeeSchedule maps a trade kind to its fee rate (0.002 = 0.2%).
type FeeSchedule map[domain.TradeKind]float64

// DefaultFeeSchedule charges DefaultFeeRate for every kind.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		domain.TradeBuy:      DefaultFeeRate,
		domain.TradeSell:     DefaultFeeRate,
		domain.TradeExchange: DefaultFeeRate,
	}
}

// Rate returns the fee rate for kind, zero if unset.
func (s FeeSchedule) Rate(kind domain.TradeKind) float64 {
	return s[kind]
}

// Validate checks every rate is finite and within [0, 1).
func (s FeeSchedule) Validate() error {
	for kind, r := range s {
		if !kind.Valid() {
			return fmt.Errorf("fee schedule: %w: %q", domain.ErrInvalidKind, kind)
		}
		if !safe.IsFinite(r) || r < 0 || r >= 1 {
			return fmt.Errorf("fee schedule: rate for %s must be in [0, 1), got %v", kind, r)
		}
	}
	return nil
}

// Request describes a trade to execute.
type Request struct {
	Kind   domain.TradeKind `json:"kind"`
	From   string           `json:"from"`
	To     string           `json:"to"`
	Amount float64          `json:"amount"`
}

// Quote is the priced form of a Request.
type Quote struct {
	Kind       domain.TradeKind `json:"kind"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	FromAmount float64          `json:"from_amount"`
	ToAmount   float64          `json:"to_amount"`
	Rate       float64          `json:"rate"`
	Fee        float64          `json:"fee"`
	Credited   float64          `json:"credited"`
}

// validate runs the admission checks that do not depend on balances.
func validate(table *rates.Table, req Request) error {
	if !safe.IsFinitePositive(req.Amount) {
		return fmt.Errorf("%w: got %v", domain.ErrInvalidAmount, req.Amount)
	}
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidKind, req.Kind)
	}
	if !table.Has(req.From) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, req.From)
	}
	if !table.Has(req.To) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, req.To)
	}
	if req.From == req.To {
		return fmt.Errorf("%w: %s", domain.ErrSameCurrency, req.From)
	}
	return nil
}

// price converts the request against table. The fee is always computed in
// source units, but only subtracted from the credit for exchanges.
func price(table *rates.Table, fees FeeSchedule, req Request) (Quote, error) {
	q := Quote{
		Kind:       req.Kind,
		From:       req.From,
		To:         req.To,
		FromAmount: req.Amount,
		ToAmount:   table.Convert(req.Amount, req.From, req.To),
		Rate:       table.Convert(1, req.From, req.To),
		Fee:        req.Amount * fees.Rate(req.Kind),
	}

	q.Credited = q.ToAmount
	if req.Kind.DeductsFee() {
		q.Credited = q.ToAmount - q.Fee
	}
	if q.Credited < 0 {
		return Quote{}, fmt.Errorf("%w: fee %v exceeds proceeds %v", domain.ErrFeeExceedsProceeds, q.Fee, q.ToAmount)
	}
	return q, nil
}
