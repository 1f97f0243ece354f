package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxwallet/internal/domain"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "rates_refreshed", EvRatesRefreshed.String())
	assert.Equal(t, "trade_executed", EvTradeExecuted.String())
	assert.Equal(t, "unknown", Type(999).String())
}

func TestWrap_Envelope(t *testing.T) {
	ev := &TradeExecutedEvent{
		BaseEvent:   BaseEvent{Seq: 7, Ts: time.Unix(0, 0).UTC()},
		Transaction: domain.Transaction{ID: "tx-1", Kind: domain.TradeBuy},
	}

	raw, err := json.Marshal(Wrap(ev))
	require.NoError(t, err)

	var decoded struct {
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Data struct {
			Transaction domain.Transaction `json:"transaction"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "trade_executed", decoded.Type)
	assert.Equal(t, uint64(7), decoded.Seq)
	assert.Equal(t, "tx-1", decoded.Data.Transaction.ID)
}

func TestFanout(t *testing.T) {
	var got []Type
	h := Fanout(
		func(ev Event) { got = append(got, ev.GetType()) },
		nil,
		func(ev Event) { got = append(got, ev.GetType()) },
	)

	h(&FavoritesChangedEvent{Codes: []string{"USD"}})
	assert.Equal(t, []Type{EvFavoritesChanged, EvFavoritesChanged}, got)
}
