// Package metrics exports engine activity as prometheus series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fxwallet/internal/event"
)

// Metrics holds the engine series and the registry they live in.
type Metrics struct {
	reg *prometheus.Registry

	tradesExecuted   *prometheus.CounterVec
	tradesRejected   *prometheus.CounterVec
	tradeVolume      *prometheus.CounterVec
	feesCollected    *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	rates            *prometheus.GaugeVec
	changes          *prometheus.GaugeVec
	favorites        prometheus.Gauge
	lastRefreshEpoch prometheus.Gauge
}

// New registers every series on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		tradesExecuted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxwallet_trades_executed_total",
			Help: "Total number of settled trades",
		}, []string{"kind", "from", "to"}),
		tradesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxwallet_trades_rejected_total",
			Help: "Total number of trades rejected at admission",
		}, []string{"kind"}),
		tradeVolume: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxwallet_trade_volume_total",
			Help: "Debited amount of settled trades, in the debited currency",
		}, []string{"currency"}),
		feesCollected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxwallet_fees_total",
			Help: "Fees recorded on settled trades, in the debited currency",
		}, []string{"currency"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxwallet_rate_refreshes_total",
			Help: "Rate refresh attempts by result",
		}, []string{"result"}),
		rates: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fxwallet_rate",
			Help: "Current quote of one base unit in the currency",
		}, []string{"currency"}),
		changes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fxwallet_change_24h_percent",
			Help: "Current 24h change of the currency",
		}, []string{"currency"}),
		favorites: f.NewGauge(prometheus.GaugeOpts{
			Name: "fxwallet_favorites",
			Help: "Number of favorite currencies",
		}),
		lastRefreshEpoch: f.NewGauge(prometheus.GaugeOpts{
			Name: "fxwallet_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful rate refresh",
		}),
	}
}

// Registry returns the registry backing the series.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Observe updates the series for one engine event. It has the shape of an
// event.Handler.
func (m *Metrics) Observe(ev event.Event) {
	switch e := ev.(type) {
	case *event.TradeExecutedEvent:
		tx := e.Transaction
		m.tradesExecuted.WithLabelValues(string(tx.Kind), tx.FromCurrency, tx.ToCurrency).Inc()
		m.tradeVolume.WithLabelValues(tx.FromCurrency).Add(tx.FromAmount)
		m.feesCollected.WithLabelValues(tx.FromCurrency).Add(tx.Fee)
	case *event.TradeRejectedEvent:
		m.tradesRejected.WithLabelValues(string(e.Kind)).Inc()
	case *event.RatesRefreshedEvent:
		m.refreshes.WithLabelValues("ok").Inc()
		for _, c := range e.Currencies {
			m.rates.WithLabelValues(c.Code).Set(c.Rate)
			m.changes.WithLabelValues(c.Code).Set(c.Change24h)
		}
		m.lastRefreshEpoch.Set(float64(e.Ts.Unix()))
	case *event.RefreshFailedEvent:
		m.refreshes.WithLabelValues("failed").Inc()
	case *event.FavoritesChangedEvent:
		m.favorites.Set(float64(len(e.Codes)))
	}
}
