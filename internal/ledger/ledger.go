// Package ledger owns wallet balances and the transaction log.
// Both change together through Apply, which either posts a whole entry or
// nothing at all.
package ledger

import (
	"fmt"
	"sync"

	"fxwallet/internal/domain"
)

// Posting is one leg of an entry.
type Posting struct {
	Code   string
	Amount float64
}

// Entry is a debit, a credit, and the record describing them.
type Entry struct {
	Debit  Posting
	Credit Posting
	Record domain.Transaction
}

// Ledger is the single source of truth for holdings.
type Ledger struct {
	mu      sync.RWMutex
	wallet  domain.Wallet
	history []domain.Transaction // Completion order, oldest first
	byID    map[string]int
}

// New creates a ledger seeded with the given balances.
func New(seed domain.Wallet) *Ledger {
	w := seed.Clone()
	w.VerifyInvariant()
	return &Ledger{
		wallet: w,
		byID:   make(map[string]int),
	}
}

// Apply posts e atomically. The debit balance is re-checked under the lock;
// on any error neither the wallet nor the log changes.
func (l *Ledger) Apply(e Entry) error {
	if e.Debit.Amount < 0 || e.Credit.Amount < 0 {
		return fmt.Errorf("negative posting: debit=%v credit=%v", e.Debit.Amount, e.Credit.Amount)
	}
	if e.Record.ID == "" {
		return fmt.Errorf("entry record has no id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.byID[e.Record.ID]; dup {
		return fmt.Errorf("duplicate transaction id %s", e.Record.ID)
	}
	if have := l.wallet[e.Debit.Code]; have < e.Debit.Amount {
		return fmt.Errorf("%w: %s need %v, have %v", domain.ErrInsufficientBalance, e.Debit.Code, e.Debit.Amount, have)
	}

	l.wallet[e.Debit.Code] -= e.Debit.Amount
	l.wallet[e.Credit.Code] += e.Credit.Amount

	l.byID[e.Record.ID] = len(l.history)
	l.history = append(l.history, e.Record)

	l.wallet.VerifyInvariant()
	return nil
}

// Balance returns the balance of code, zero if never held.
func (l *Ledger) Balance(code string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet[code]
}

// Wallet returns a snapshot of all balances.
func (l *Ledger) Wallet() domain.Wallet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.wallet.Clone()
}

// Transactions returns up to limit records, newest first. limit <= 0 means all.
func (l *Ledger) Transactions(limit int) []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Transaction, n)
	for i := 0; i < n; i++ {
		out[i] = l.history[len(l.history)-1-i]
	}
	return out
}

// Transaction returns the record with the given id.
func (l *Ledger) Transaction(id string) (domain.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return l.history[i], true
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.history)
}
