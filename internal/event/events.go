package event

import (
	"time"

	"fxwallet/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvRatesRefreshed Type = iota + 1
	EvRefreshFailed
	EvTradeExecuted
	EvTradeRejected
	EvFavoritesChanged
)

func (t Type) String() string {
	switch t {
	case EvRatesRefreshed:
		return "rates_refreshed"
	case EvRefreshFailed:
		return "refresh_failed"
	case EvTradeExecuted:
		return "trade_executed"
	case EvTradeRejected:
		return "trade_rejected"
	case EvFavoritesChanged:
		return "favorites_changed"
	default:
		return "unknown"
	}
}

// Event is the interface for all engine events.
type Event interface {
	GetSeq() uint64
	GetTs() time.Time
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64    `json:"seq"`
	Ts  time.Time `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64   { return e.Seq }
func (e BaseEvent) GetTs() time.Time { return e.Ts }

// RatesRefreshedEvent carries the table swapped in by a refresh.
type RatesRefreshedEvent struct {
	BaseEvent
	Currencies []domain.Currency `json:"currencies"`
}

func (e RatesRefreshedEvent) GetType() Type { return EvRatesRefreshed }

// RefreshFailedEvent reports a refresh that left the table unchanged.
type RefreshFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

func (e RefreshFailedEvent) GetType() Type { return EvRefreshFailed }

// TradeExecutedEvent carries a settled transaction.
type TradeExecutedEvent struct {
	BaseEvent
	Transaction domain.Transaction `json:"transaction"`
}

func (e TradeExecutedEvent) GetType() Type { return EvTradeExecuted }

// TradeRejectedEvent reports a trade that failed admission.
type TradeRejectedEvent struct {
	BaseEvent
	Kind  domain.TradeKind `json:"kind"`
	From  string           `json:"from"`
	To    string           `json:"to"`
	Error string           `json:"error"`
}

func (e TradeRejectedEvent) GetType() Type { return EvTradeRejected }

// FavoritesChangedEvent carries the favorite codes after a change.
type FavoritesChangedEvent struct {
	BaseEvent
	Codes []string `json:"codes"`
}

func (e FavoritesChangedEvent) GetType() Type { return EvFavoritesChanged }

// Envelope is the wire form of an event for stream subscribers.
type Envelope struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Data Event  `json:"data"`
}

// Wrap builds the envelope for ev.
func Wrap(ev Event) Envelope {
	return Envelope{Type: ev.GetType().String(), Seq: ev.GetSeq(), Data: ev}
}

// Handler receives engine events. It must not call back into the engine's
// mutating operations.
type Handler func(Event)

// Fanout returns a handler that forwards every event to each non-nil h.
func Fanout(hs ...Handler) Handler {
	return func(ev Event) {
		for _, h := range hs {
			if h != nil {
				h(ev)
			}
		}
	}
}
