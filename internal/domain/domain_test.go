package domain

import (
	"errors"
	"testing"
)

func TestParseTradeKind(t *testing.T) {
	for _, k := range TradeKinds {
		got, err := ParseTradeKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseTradeKind(%q) = %q, %v", k, got, err)
		}
	}

	if _, err := ParseTradeKind("swap"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestTransaction_Credited(t *testing.T) {
	tests := []struct {
		kind TradeKind
		want float64
	}{
		{TradeBuy, 10},
		{TradeSell, 10},
		{TradeExchange, 9.5},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			tx := Transaction{Kind: tt.kind, ToAmount: 10, Fee: 0.5}
			if got := tx.Credited(); got != tt.want {
				t.Errorf("Credited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWallet_CloneIsIndependent(t *testing.T) {
	w := Wallet{"INR": 1000}
	c := w.Clone()
	c["INR"] = 1
	c["USD"] = 5

	if w.Balance("INR") != 1000 {
		t.Errorf("original mutated: %v", w)
	}
	if w.Balance("USD") != 0 {
		t.Errorf("missing key should read as zero")
	}
}

func TestWallet_Codes(t *testing.T) {
	w := Wallet{"USD": 1, "EUR": 2, "INR": 3}
	got := w.Codes()
	want := []string{"EUR", "INR", "USD"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Codes() = %v, want %v", got, want)
		}
	}
}

func TestWallet_InvariantPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for negative balance")
		}
	}()

	w := Wallet{"USD": -0.01}
	w.VerifyInvariant()
}

func TestCurrency_ChangeDirection(t *testing.T) {
	if (Currency{Change24h: 0.3}).ChangeDirection() != "positive" {
		t.Error("expected positive")
	}
	if (Currency{Change24h: -0.3}).ChangeDirection() != "negative" {
		t.Error("expected negative")
	}
	if (Currency{}).ChangeDirection() != "neutral" {
		t.Error("expected neutral")
	}
}
