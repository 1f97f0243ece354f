package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxwallet/internal/domain"
	"fxwallet/internal/event"
	"fxwallet/internal/rates"
	"fxwallet/pkg/safe"
)

func testConfig(seed float64) Config {
	return Config{
		Base: "INR",
		Currencies: []domain.Currency{
			{Code: "INR", Name: "Indian Rupee", Symbol: "₹", Rate: 1},
			{Code: "USD", Name: "US Dollar", Symbol: "$", Rate: 0.012, Change24h: 0.3},
			{Code: "EUR", Name: "Euro", Symbol: "€", Rate: 0.011, Change24h: -0.2},
			{Code: "GBP", Name: "British Pound", Symbol: "£", Rate: 0.0095, Change24h: 0.1},
		},
		SeedBalance:     seed,
		Favorites:       []string{"EUR"},
		RefreshInterval: time.Second,
	}
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.GetType()
	}
	return out
}

func (r *recorder) count(t event.Type) int {
	n := 0
	for _, got := range r.types() {
		if got == t {
			n++
		}
	}
	return n
}

func newEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no base", func(c *Config) { c.Base = "" }},
		{"unregistered base", func(c *Config) { c.Base = "XYZ" }},
		{"negative seed", func(c *Config) { c.SeedBalance = -1 }},
		{"nan seed", func(c *Config) { c.SeedBalance = math.NaN() }},
		{"bad fee", func(c *Config) { c.Fees = map[domain.TradeKind]float64{domain.TradeBuy: 2} }},
		{"negative interval", func(c *Config) { c.RefreshInterval = -time.Second }},
		{"bad currency", func(c *Config) { c.Currencies[1].Rate = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(1000)
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestBaseCurrencyInvariant(t *testing.T) {
	e := newEngine(t, testConfig(1000))

	rate, ok := e.Rate("INR")
	require.True(t, ok)
	assert.Equal(t, 1.0, rate)

	base, _ := e.Currency("INR")
	assert.Equal(t, 0.0, base.Change24h)
}

func TestScenarioA_Buy(t *testing.T) {
	e := newEngine(t, testConfig(1000))

	tx, err := e.ExecuteTrade(context.Background(), domain.TradeBuy, "INR", "USD", 500)
	require.NoError(t, err)

	assert.Equal(t, 500.0, e.Balance("INR"))
	assert.True(t, safe.ApproxEqual(6.0, e.Balance("USD"), 1e-9))

	txs := e.Transactions(0)
	require.Len(t, txs, 1)
	assert.Equal(t, tx, txs[0])
	assert.Equal(t, domain.TradeBuy, txs[0].Kind)
	assert.Equal(t, 500.0, txs[0].FromAmount)
	assert.True(t, safe.ApproxEqual(6.0, txs[0].ToAmount, 1e-9))
	assert.NotEmpty(t, txs[0].ID)
	assert.Empty(t, e.LastError())
}

func TestScenarioB_InsufficientBalance(t *testing.T) {
	e := newEngine(t, testConfig(100))

	_, err := e.ExecuteTrade(context.Background(), domain.TradeSell, "INR", "USD", 500)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.Equal(t, domain.Wallet{"INR": 100}, e.Wallet())
	assert.Empty(t, e.Transactions(0))
	assert.Contains(t, e.LastError(), "insufficient balance")
}

func TestScenarioC_ExchangeDeductsFee(t *testing.T) {
	e := newEngine(t, testConfig(10000))
	ctx := context.Background()

	_, err := e.ExecuteTrade(ctx, domain.TradeBuy, "INR", "USD", 100/0.012)
	require.NoError(t, err)
	require.True(t, safe.ApproxEqual(100, e.Balance("USD"), 1e-9))

	usdBefore := e.Balance("USD")
	tx, err := e.ExecuteTrade(ctx, domain.TradeExchange, "USD", "EUR", 50)
	require.NoError(t, err)

	assert.InDelta(t, 45.83, tx.ToAmount, 0.005)
	assert.True(t, safe.ApproxEqual(0.1, tx.Fee, 1e-12))
	assert.True(t, safe.ApproxEqual(50, usdBefore-e.Balance("USD"), 1e-9))
	assert.True(t, safe.ApproxEqual(tx.ToAmount-0.1, e.Balance("EUR"), 1e-9))

	txs := e.Transactions(0)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TradeExchange, txs[0].Kind, "newest first")
}

func TestScenarioD_RefreshKeepsBaseAndPositiveRates(t *testing.T) {
	e := newEngine(t, testConfig(1000))

	for i := 0; i < 200; i++ {
		require.NoError(t, e.RefreshRates(context.Background()))
		for _, c := range e.Currencies() {
			if c.Code == "INR" {
				assert.Equal(t, 1.0, c.Rate)
				assert.Equal(t, 0.0, c.Change24h)
				continue
			}
			require.Greater(t, c.Rate, 0.0)
		}
	}
	assert.False(t, e.Loading())
	assert.False(t, e.Status().LastRefresh.IsZero())
}

func TestRefreshFailure_KeepsTable(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, testConfig(1000),
		WithJitter(func() float64 { return math.NaN() }),
		WithEventHandler(rec.handle))

	before := e.Currencies()
	err := e.RefreshRates(context.Background())
	require.ErrorIs(t, err, domain.ErrRefreshFailed)

	if diff := cmp.Diff(before, e.Currencies()); diff != "" {
		t.Errorf("table changed after failed refresh (-before +after):\n%s", diff)
	}
	assert.NotEmpty(t, e.LastError())
	assert.False(t, e.Loading())
	assert.Equal(t, []event.Type{event.EvRefreshFailed}, rec.types())
}

func TestRefresh_ClearsPriorError(t *testing.T) {
	e := newEngine(t, testConfig(100))

	_, err := e.ExecuteTrade(context.Background(), domain.TradeBuy, "INR", "USD", 500)
	require.Error(t, err)
	require.NotEmpty(t, e.LastError())

	require.NoError(t, e.RefreshRates(context.Background()))
	assert.Empty(t, e.LastError())
}

func TestRefresh_LoadingIsObservable(t *testing.T) {
	cfg := testConfig(1000)
	cfg.RefreshLatency = 300 * time.Millisecond
	e := newEngine(t, cfg)

	done := make(chan error, 1)
	go func() { done <- e.RefreshRates(context.Background()) }()

	require.Eventually(t, e.Loading, time.Second, 5*time.Millisecond)
	assert.True(t, e.Status().Loading)
	require.NoError(t, <-done)
	assert.False(t, e.Loading())
}

func TestConvert_Properties(t *testing.T) {
	e := newEngine(t, testConfig(1000))
	codes := []string{"INR", "USD", "EUR", "GBP"}

	for _, x := range codes {
		assert.Equal(t, 42.5, e.Convert(42.5, x, x))
		for _, y := range codes {
			back := e.Convert(e.Convert(1234.5, x, y), y, x)
			assert.InEpsilon(t, 1234.5, back, 1e-12)
		}
	}
	assert.Equal(t, 0.0, e.Convert(100, "INR", "XYZ"))
}

func TestFavorites(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, testConfig(1000), WithEventHandler(rec.handle))

	e.AddFavorite("USD")
	e.AddFavorite("USD")
	e.AddFavorite("NOPE")
	e.RemoveFavorite("GBP")

	codes := func(cs []domain.Currency) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.Code
		}
		return out
	}

	// Rate table order, not insertion order; unknown codes never listed.
	assert.Equal(t, []string{"USD", "EUR"}, codes(e.Favorites()))
	assert.Equal(t, []string{"EUR", "USD", "NOPE"}, e.FavoriteCodes())
	assert.True(t, e.IsFavorite("NOPE"))

	e.RemoveFavorite("EUR")
	assert.Equal(t, []string{"USD"}, codes(e.Favorites()))

	// Only actual changes emit events: USD, NOPE, remove EUR.
	assert.Equal(t, 3, rec.count(event.EvFavoritesChanged))
}

func TestSnapshotsAreCopies(t *testing.T) {
	e := newEngine(t, testConfig(1000))
	_, err := e.ExecuteTrade(context.Background(), domain.TradeBuy, "INR", "USD", 100)
	require.NoError(t, err)

	w := e.Wallet()
	w["INR"] = 1e9
	cs := e.Currencies()
	cs[1].Rate = 1e9
	txs := e.Transactions(0)
	txs[0].FromAmount = 1e9

	assert.Equal(t, 900.0, e.Balance("INR"))
	rate, _ := e.Rate("USD")
	assert.Equal(t, 0.012, rate)
	assert.Equal(t, 100.0, e.Transactions(0)[0].FromAmount)
}

func TestQuote_DoesNotMutate(t *testing.T) {
	e := newEngine(t, testConfig(1000))

	q, err := e.Quote(domain.TradeBuy, "INR", "USD", 500)
	require.NoError(t, err)
	assert.True(t, safe.ApproxEqual(6.0, q.ToAmount, 1e-9))
	assert.True(t, safe.ApproxEqual(1.0, q.Fee, 1e-12))
	assert.True(t, safe.ApproxEqual(6.0, q.Credited, 1e-9))

	assert.Equal(t, 1000.0, e.Balance("INR"))
	assert.Empty(t, e.Transactions(0))

	_, err = e.Quote(domain.TradeBuy, "INR", "USD", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, e.LastError(), "quotes do not record errors")
}

func TestPortfolioValue(t *testing.T) {
	e := newEngine(t, testConfig(1000))
	ctx := context.Background()

	assert.Equal(t, 1000.0, e.PortfolioValue())

	_, err := e.ExecuteTrade(ctx, domain.TradeBuy, "INR", "USD", 400)
	require.NoError(t, err)
	assert.True(t, safe.ApproxEqual(1000.0, e.PortfolioValue(), 1e-9))

	_, err = e.ExecuteTrade(ctx, domain.TradeExchange, "USD", "EUR", 2)
	require.NoError(t, err)
	// Exchange fee (0.004) is subtracted in EUR units.
	assert.True(t, safe.ApproxEqual(1000.0-0.004/0.011, e.PortfolioValue(), 1e-9))
}

func TestTradeEvents(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, testConfig(1000), WithEventHandler(rec.handle))
	ctx := context.Background()

	_, err := e.ExecuteTrade(ctx, domain.TradeBuy, "INR", "USD", 10)
	require.NoError(t, err)
	_, err = e.ExecuteTrade(ctx, domain.TradeBuy, "INR", "USD", 1e6)
	require.Error(t, err)

	assert.Equal(t, []event.Type{event.EvTradeExecuted, event.EvTradeRejected}, rec.types())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, uint64(1), rec.events[0].GetSeq())
	assert.Equal(t, uint64(2), rec.events[1].GetSeq())
}

func TestConcurrentTradesKeepInvariants(t *testing.T) {
	e := newEngine(t, testConfig(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ExecuteTrade(ctx, domain.TradeBuy, "INR", "USD", 30); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	// 1000 / 30 = 33 trades fit.
	assert.Equal(t, int32(33), ok.Load())
	assert.Len(t, e.Transactions(0), 33)
	assert.True(t, safe.ApproxEqual(10, e.Balance("INR"), 1e-9))
	for code, bal := range e.Wallet() {
		assert.GreaterOrEqual(t, bal, 0.0, code)
	}
}

func TestStartClose(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, testConfig(1000), WithEventHandler(rec.handle))

	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, 1, rec.count(event.EvRatesRefreshed), "initial refresh runs synchronously")

	require.Eventually(t, func() bool { return rec.count(event.EvRatesRefreshed) >= 2 },
		3*time.Second, 20*time.Millisecond)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	after := rec.count(event.EvRatesRefreshed)
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, rec.count(event.EvRatesRefreshed), "refresh ran after Close")
}

func TestRefresh_MovesRatesWithinBounds(t *testing.T) {
	e := newEngine(t, testConfig(1000), WithJitter(func() float64 { return 1 }))
	before := e.Currencies()

	require.NoError(t, e.RefreshRates(context.Background()))
	after := e.Currencies()

	want := make([]domain.Currency, len(before))
	copy(want, before)
	for i := range want {
		if want[i].Code == "INR" {
			continue
		}
		want[i].Rate *= 1.005
		want[i].Change24h += 0.1
	}
	if diff := cmp.Diff(want, after, cmpopts.EquateApprox(1e-12, 1e-12)); diff != "" {
		t.Errorf("unexpected table after refresh (-want +got):\n%s", diff)
	}
}

func TestClose_WaitsForCallerRefresh(t *testing.T) {
	cfg := testConfig(1000)
	cfg.RefreshLatency = 300 * time.Millisecond
	rec := &recorder{}
	e := newEngine(t, cfg, WithEventHandler(rec.handle))

	done := make(chan error, 1)
	go func() { done <- e.RefreshRates(context.Background()) }()
	require.Eventually(t, e.Loading, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Close())
	assert.False(t, e.Loading(), "Close returned while a refresh was running")
	assert.Equal(t, 1, rec.count(event.EvRatesRefreshed))
	require.NoError(t, <-done)
}

func TestStart_AfterClose(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, testConfig(1000), WithEventHandler(rec.handle))

	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Start(context.Background()), ErrClosed)

	time.Sleep(1500 * time.Millisecond)
	assert.Zero(t, rec.count(event.EvRatesRefreshed), "no refresh may run after Close")
}

func TestStart_Twice(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, testConfig(1000), WithEventHandler(rec.handle))

	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, 1, rec.count(event.EvRatesRefreshed), "second Start must not refresh again")
}

func TestRefresh_ZeroAmplitudeIsKept(t *testing.T) {
	cfg := testConfig(1000)
	cfg.Perturb = &rates.PerturbConfig{}
	e := newEngine(t, cfg, WithJitter(func() float64 { return 1 }))
	before := e.Currencies()

	require.NoError(t, e.RefreshRates(context.Background()))
	if diff := cmp.Diff(before, e.Currencies()); diff != "" {
		t.Errorf("zero amplitudes moved the table (-before +after):\n%s", diff)
	}
}

func TestNew_RejectsBadAmplitude(t *testing.T) {
	cfg := testConfig(1000)
	cfg.Perturb = &rates.PerturbConfig{RateAmplitude: 1.5}
	_, err := New(cfg)
	assert.Error(t, err)
}
