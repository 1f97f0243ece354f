// Package engine is the exchange and ledger engine. It exclusively owns the
// rate table, wallet, transaction log, and favorites; callers only ever see
// copies of them.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"fxwallet/internal/domain"
	"fxwallet/internal/event"
	"fxwallet/internal/execution"
	"fxwallet/internal/favorites"
	"fxwallet/internal/ledger"
	"fxwallet/internal/rates"
	"fxwallet/internal/scheduler"
)

// Status is a snapshot of the observable engine flags.
type Status struct {
	Loading     bool      `json:"loading"`
	LastError   string    `json:"last_error,omitempty"`
	LastRefresh time.Time `json:"last_refresh"`
	Base        string    `json:"base"`
}

// Engine executes trades and simulates rate movement for one wallet.
//
// Trades and table swaps are serialized internally. Callers should still
// avoid overlapping trades: the log records completion order, which is only
// meaningful when requests are issued one at a time.
type Engine struct {
	cfg Config

	table     atomic.Pointer[rates.Table]
	ledger    *ledger.Ledger
	exec      execution.Execution
	favorites *favorites.Set

	writeMu   sync.Mutex // Trades, table swaps, and event emission
	refreshMu sync.Mutex // One refresh at a time, including its latency

	loading     atomic.Bool
	statusMu    sync.RWMutex
	lastError   string
	lastRefresh time.Time

	jitter  rates.Jitter
	onEvent event.Handler
	seq     uint64
	now     func() time.Time
	log     *slog.Logger

	sched   *scheduler.Scheduler
	lifeMu  sync.Mutex // Start and Close
	started bool
	closed  bool
}

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("engine closed")

// Option customises an Engine.
type Option func(*Engine)

// WithJitter overrides the random source used by refreshes.
func WithJitter(j rates.Jitter) Option {
	return func(e *Engine) { e.jitter = j }
}

// WithEventHandler registers the receiver for engine events.
func WithEventHandler(h event.Handler) Option {
	return func(e *Engine) { e.onEvent = h }
}

// WithClock overrides the time source for transactions and events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an engine from cfg. No background work starts until Start.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Fees == nil {
		cfg.Fees = execution.DefaultFeeSchedule()
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Perturb == nil {
		p := rates.DefaultPerturbConfig()
		cfg.Perturb = &p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table, err := rates.NewTable(cfg.Base, cfg.Currencies)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		ledger:    ledger.New(domain.Wallet{cfg.Base: cfg.SeedBalance}),
		favorites: favorites.NewSet(cfg.Favorites...),
		now:       time.Now,
		log:       slog.Default(),
	}
	e.table.Store(table)

	for _, opt := range opts {
		opt(e)
	}
	baseLog := e.log
	e.log = baseLog.With(slog.String("component", "engine"))
	if e.jitter == nil {
		e.jitter = rates.UniformJitter(rand.New(rand.NewPCG(uint64(e.now().UnixNano()), 0x9e3779b97f4a7c15)))
	}
	e.exec = execution.NewPaperExecution(e.ledger, cfg.Fees, execution.WithClock(e.now))
	e.sched = scheduler.New(baseLog)

	return e, nil
}

// Start runs one refresh and then schedules refreshes every RefreshInterval.
// A failed initial refresh is reported through LastError, not returned.
// Starting twice is a no-op; starting after Close returns ErrClosed.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.started {
		return nil
	}

	if err := e.RefreshRates(ctx); err != nil {
		e.log.WarnContext(ctx, "Initial rate refresh failed", slog.Any("error", err))
	}

	err := e.sched.Every(e.cfg.RefreshInterval, scheduler.JobFunc{
		JobName: "rate-refresh",
		Fn:      e.RefreshRates,
	})
	if err != nil {
		return err
	}
	e.sched.Start()
	e.started = true
	e.log.InfoContext(ctx, "Engine started",
		slog.String("base", e.cfg.Base),
		slog.Duration("refresh_interval", e.cfg.RefreshInterval))
	return nil
}

// Close cancels the refresh timer and waits for any in-flight refresh,
// whether the timer or a caller started it. Closing twice is a no-op.
func (e *Engine) Close() error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if e.started {
		e.sched.Stop()
	}
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	e.log.Info("Engine stopped")
	return nil
}

// BaseCurrency returns the base currency code.
func (e *Engine) BaseCurrency() string { return e.cfg.Base }

// Currencies returns a snapshot of the rate table in registration order.
func (e *Engine) Currencies() []domain.Currency {
	return e.table.Load().Currencies()
}

// Currency returns a single rate table entry.
func (e *Engine) Currency(code string) (domain.Currency, bool) {
	return e.table.Load().Lookup(code)
}

// Rate returns the quote of one base unit in code; (0, false) if unknown.
func (e *Engine) Rate(code string) (float64, bool) {
	return e.table.Load().Rate(code)
}

// Convert converts amount between currencies using the current table.
func (e *Engine) Convert(amount float64, from, to string) float64 {
	return e.table.Load().Convert(amount, from, to)
}

// Wallet returns a snapshot of all balances.
func (e *Engine) Wallet() domain.Wallet {
	return e.ledger.Wallet()
}

// Balance returns the balance held in code.
func (e *Engine) Balance(code string) float64 {
	return e.ledger.Balance(code)
}

// Transactions returns up to limit records, newest first; limit <= 0 returns all.
func (e *Engine) Transactions(limit int) []domain.Transaction {
	return e.ledger.Transactions(limit)
}

// Transaction looks up one record by id.
func (e *Engine) Transaction(id string) (domain.Transaction, bool) {
	return e.ledger.Transaction(id)
}

// PortfolioValue returns the wallet's total value in the base currency.
// Holdings in currencies missing from the table count as zero.
func (e *Engine) PortfolioValue() float64 {
	table := e.table.Load()
	wallet := e.ledger.Wallet()

	values := make([]float64, 0, len(wallet))
	for _, code := range wallet.Codes() {
		values = append(values, table.Convert(wallet[code], code, table.Base()))
	}
	return floats.Sum(values)
}

// Quote prices a trade against the current table without executing it.
func (e *Engine) Quote(kind domain.TradeKind, from, to string, amount float64) (execution.Quote, error) {
	return e.exec.Quote(e.table.Load(), execution.Request{Kind: kind, From: from, To: to, Amount: amount})
}

// ExecuteTrade validates and settles a trade against the current table.
// On failure the wallet and log are unchanged and LastError holds the reason.
func (e *Engine) ExecuteTrade(ctx context.Context, kind domain.TradeKind, from, to string, amount float64) (domain.Transaction, error) {
	req := execution.Request{Kind: kind, From: from, To: to, Amount: amount}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tx, err := e.exec.Execute(ctx, e.table.Load(), req)
	if err != nil {
		e.setLastError(err.Error())
		e.log.WarnContext(ctx, "Trade rejected",
			slog.String("kind", string(kind)),
			slog.String("from", from),
			slog.String("to", to),
			slog.Float64("amount", amount),
			slog.Any("error", err))
		e.emitLocked(&event.TradeRejectedEvent{Kind: kind, From: from, To: to, Error: err.Error()})
		return domain.Transaction{}, err
	}

	e.setLastError("")
	e.emitLocked(&event.TradeExecutedEvent{Transaction: tx})
	return tx, nil
}

// RefreshRates perturbs every non-base quote and swaps the new table in.
// On failure the previous table stays in place and LastError is set.
func (e *Engine) RefreshRates(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	e.loading.Store(true)
	defer e.loading.Store(false)
	e.setLastError("")

	if e.cfg.RefreshLatency > 0 {
		time.Sleep(e.cfg.RefreshLatency)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	next, err := rates.Perturb(e.table.Load(), e.jitter, *e.cfg.Perturb)
	if err != nil {
		if !errors.Is(err, domain.ErrRefreshFailed) {
			err = errors.Join(domain.ErrRefreshFailed, err)
		}
		e.setLastError(err.Error())
		e.log.ErrorContext(ctx, "Rate refresh failed", slog.Any("error", err))
		e.emitLocked(&event.RefreshFailedEvent{Error: err.Error()})
		return err
	}

	e.table.Store(next)
	e.statusMu.Lock()
	e.lastRefresh = e.now()
	e.statusMu.Unlock()

	e.log.DebugContext(ctx, "Rates refreshed", slog.Int("currencies", next.Len()))
	e.emitLocked(&event.RatesRefreshedEvent{Currencies: next.Currencies()})
	return nil
}

// Favorites returns favorite currencies in rate table order. Codes that are
// not registered are skipped.
func (e *Engine) Favorites() []domain.Currency {
	all := e.table.Load().Currencies()
	out := make([]domain.Currency, 0, e.favorites.Len())
	for _, c := range all {
		if e.favorites.Contains(c.Code) {
			out = append(out, c)
		}
	}
	return out
}

// FavoriteCodes returns the raw favorite codes in insertion order.
func (e *Engine) FavoriteCodes() []string {
	return e.favorites.Codes()
}

// IsFavorite reports whether code is a favorite.
func (e *Engine) IsFavorite(code string) bool {
	return e.favorites.Contains(code)
}

// AddFavorite marks code as a favorite. Adding twice is a no-op.
func (e *Engine) AddFavorite(code string) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.favorites.Add(code) {
		e.emitLocked(&event.FavoritesChangedEvent{Codes: e.favorites.Codes()})
	}
}

// RemoveFavorite unmarks code. Removing an absent code is a no-op.
func (e *Engine) RemoveFavorite(code string) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.favorites.Remove(code) {
		e.emitLocked(&event.FavoritesChangedEvent{Codes: e.favorites.Codes()})
	}
}

// Loading reports whether a refresh is in progress.
func (e *Engine) Loading() bool {
	return e.loading.Load()
}

// LastError returns the most recent failure message, empty if none.
func (e *Engine) LastError() string {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.lastError
}

// Status returns the observable flags in one snapshot.
func (e *Engine) Status() Status {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return Status{
		Loading:     e.loading.Load(),
		LastError:   e.lastError,
		LastRefresh: e.lastRefresh,
		Base:        e.cfg.Base,
	}
}

func (e *Engine) setLastError(msg string) {
	e.statusMu.Lock()
	e.lastError = msg
	e.statusMu.Unlock()
}

// emitLocked stamps ev and hands it to the handler. Caller holds writeMu.
func (e *Engine) emitLocked(ev event.Event) {
	if e.onEvent == nil {
		return
	}
	e.seq++
	base := event.BaseEvent{Seq: e.seq, Ts: e.now()}

	switch v := ev.(type) {
	case *event.RatesRefreshedEvent:
		v.BaseEvent = base
	case *event.RefreshFailedEvent:
		v.BaseEvent = base
	case *event.TradeExecutedEvent:
		v.BaseEvent = base
	case *event.TradeRejectedEvent:
		v.BaseEvent = base
	case *event.FavoritesChangedEvent:
		v.BaseEvent = base
	}
	e.onEvent(ev)
}
