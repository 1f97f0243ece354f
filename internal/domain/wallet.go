package domain

import (
	"fmt"
	"sort"
)

// Wallet maps currency code to balance. A missing key means zero.
type Wallet map[string]float64

// Balance returns the balance for code, zero if absent.
func (w Wallet) Balance(code string) float64 {
	return w[code]
}

// Clone returns an independent copy.
func (w Wallet) Clone() Wallet {
	out := make(Wallet, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Codes returns the held currency codes in sorted order.
func (w Wallet) Codes() []string {
	codes := make([]string, 0, len(w))
	for k := range w {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

// VerifyInvariant panics if any balance is negative.
func (w Wallet) VerifyInvariant() {
	for code, bal := range w {
		if bal < 0 {
			panic(fmt.Sprintf("INVARIANT_VIOLATION: negative balance %s=%f", code, bal))
		}
	}
}
