package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"fxwallet/internal/domain"
	"fxwallet/internal/ledger"
	"fxwallet/internal/rates"
)

// PaperExecution settles trades against the in-memory ledger.
// It is the only writer of wallet balances and the transaction log.
type PaperExecution struct {
	ledger *ledger.Ledger
	fees   FeeSchedule
	now    func() time.Time
	newID  func() string
}

// Option customises a PaperExecution.
type Option func(*PaperExecution)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *PaperExecution) { p.now = now }
}

// WithIDGenerator overrides transaction id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *PaperExecution) { p.newID = newID }
}

// NewPaperExecution creates a paper trading executor over l.
func NewPaperExecution(l *ledger.Ledger, fees FeeSchedule, opts ...Option) *PaperExecution {
	p := &PaperExecution{
		ledger: l,
		fees:   fees,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Quote prices req without touching the ledger.
func (p *PaperExecution) Quote(table *rates.Table, req Request) (Quote, error) {
	if err := validate(table, req); err != nil {
		return Quote{}, err
	}
	return price(table, p.fees, req)
}

// Execute prices req against table and posts it to the ledger.
// Every check runs before any mutation; a failed trade leaves no trace.
func (p *PaperExecution) Execute(ctx context.Context, table *rates.Table, req Request) (domain.Transaction, error) {
	if err := validate(table, req); err != nil {
		return domain.Transaction{}, err
	}

	if have := p.ledger.Balance(req.From); have < req.Amount {
		return domain.Transaction{}, fmt.Errorf("%w: %s need %v, have %v",
			domain.ErrInsufficientBalance, req.From, req.Amount, have)
	}

	q, err := price(table, p.fees, req)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		ID:           p.newID(),
		Kind:         q.Kind,
		FromCurrency: q.From,
		ToCurrency:   q.To,
		FromAmount:   q.FromAmount,
		ToAmount:     q.ToAmount,
		Rate:         q.Rate,
		Fee:          q.Fee,
		Timestamp:    p.now(),
	}

	err = p.ledger.Apply(ledger.Entry{
		Debit:  ledger.Posting{Code: q.From, Amount: q.FromAmount},
		Credit: ledger.Posting{Code: q.To, Amount: q.Credited},
		Record: tx,
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	slog.InfoContext(ctx, "PAPER EXECUTION: Trade Filled",
		slog.String("id", tx.ID),
		slog.String("kind", string(tx.Kind)),
		slog.String("from", tx.FromCurrency),
		slog.String("to", tx.ToCurrency),
		slog.Float64("from_amount", tx.FromAmount),
		slog.Float64("to_amount", tx.ToAmount),
		slog.Float64("fee", tx.Fee))

	return tx, nil
}
