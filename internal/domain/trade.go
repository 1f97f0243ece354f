package domain

import "fmt"

// TradeKind identifies the direction of a trade.
type TradeKind string

const (
	TradeBuy      TradeKind = "buy"      // base -> other
	TradeSell     TradeKind = "sell"     // other -> base
	TradeExchange TradeKind = "exchange" // other -> other
)

// TradeKinds lists every supported kind.
var TradeKinds = []TradeKind{TradeBuy, TradeSell, TradeExchange}

// Valid reports whether k is one of the supported kinds.
func (k TradeKind) Valid() bool {
	switch k {
	case TradeBuy, TradeSell, TradeExchange:
		return true
	default:
		return false
	}
}

// ParseTradeKind converts a string to a TradeKind.
func ParseTradeKind(s string) (TradeKind, error) {
	k := TradeKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// DeductsFee reports whether the fee is taken out of the credited amount.
// Only exchanges pay the fee out of the proceeds; buy and sell record it
// on the transaction without touching the wallet.
func (k TradeKind) DeductsFee() bool {
	return k == TradeExchange
}
