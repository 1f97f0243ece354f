package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fxwallet/internal/domain"
	"fxwallet/pkg/quant"
)

const maxTransactionsLimit = 1000

// TradeRequest is the body of POST /quotes and POST /trades. Amount accepts
// a JSON number or a decimal string.
type TradeRequest struct {
	Kind   domain.TradeKind `json:"kind"`
	From   string           `json:"from"`
	To     string           `json:"to"`
	Amount decimal.Decimal  `json:"amount"`
}

// CurrencyView is a rate table entry with display fields.
type CurrencyView struct {
	domain.Currency
	RateDisplay   string `json:"rate_display"`
	ChangeDisplay string `json:"change_display"`
	Direction     string `json:"direction"`
}

func newCurrencyView(c domain.Currency) CurrencyView {
	return CurrencyView{
		Currency:      c,
		RateDisplay:   quant.FormatAmount(c.Rate, quant.RatePlaces),
		ChangeDisplay: quant.FormatPercent(c.Change24h),
		Direction:     c.ChangeDirection(),
	}
}

func currencyViews(cs []domain.Currency) []CurrencyView {
	out := make([]CurrencyView, len(cs))
	for i, c := range cs {
		out[i] = newCurrencyView(c)
	}
	return out
}

// ConvertResponse is the body of GET /convert.
type ConvertResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Result float64 `json:"result"`
	Rate   float64 `json:"rate"`
}

// WalletResponse is the body of GET /wallet.
type WalletResponse struct {
	Base     string        `json:"base"`
	Balances domain.Wallet `json:"balances"`
	Value    float64       `json:"value_in_base"`
	Display  string        `json:"display"`
}

// FavoritesResponse is the body of the favorites mutations.
type FavoritesResponse struct {
	Codes []string `json:"codes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, currencyViews(s.engine.Currencies()))
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(chi.URLParam(r, "code"))
	c, ok := s.engine.Currency(code)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, code))
		return
	}
	s.writeJSON(w, http.StatusOK, newCurrencyView(c))
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := normalizeCode(q.Get("from")), normalizeCode(q.Get("to"))

	amount, err := quant.ParseAmount(q.Get("amount"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err))
		return
	}
	for _, code := range []string{from, to} {
		if _, ok := s.engine.Rate(code); !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", domain.ErrUnknownCurrency, code))
			return
		}
	}

	s.writeJSON(w, http.StatusOK, ConvertResponse{
		From:   from,
		To:     to,
		Amount: amount,
		Result: s.engine.Convert(amount, from, to),
		Rate:   s.engine.Convert(1, from, to),
	})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	base := s.engine.BaseCurrency()
	value := s.engine.PortfolioValue()

	symbol := base
	if c, ok := s.engine.Currency(base); ok && c.Symbol != "" {
		symbol = c.Symbol
	}
	s.writeJSON(w, http.StatusOK, WalletResponse{
		Base:     base,
		Balances: s.engine.Wallet(),
		Value:    value,
		Display:  quant.FormatMoney(symbol, value),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > maxTransactionsLimit {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q: must be 1-%d", raw, maxTransactionsLimit))
			return
		}
		limit = l
	}
	s.writeJSON(w, http.StatusOK, s.engine.Transactions(limit))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, ok := s.engine.Transaction(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTrade(w, r)
	if !ok {
		return
	}
	q, err := s.engine.Quote(req.Kind, req.From, req.To, req.Amount.InexactFloat64())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTrade(w, r)
	if !ok {
		return
	}
	tx, err := s.engine.ExecuteTrade(r.Context(), req.Kind, req.From, req.To, req.Amount.InexactFloat64())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RefreshRates(r.Context()); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, currencyViews(s.engine.Currencies()))
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, currencyViews(s.engine.Favorites()))
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.engine.AddFavorite(normalizeCode(chi.URLParam(r, "code")))
	s.writeJSON(w, http.StatusOK, FavoritesResponse{Codes: s.engine.FavoriteCodes()})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.engine.RemoveFavorite(normalizeCode(chi.URLParam(r, "code")))
	s.writeJSON(w, http.StatusOK, FavoritesResponse{Codes: s.engine.FavoriteCodes()})
}

func (s *Server) decodeTrade(w http.ResponseWriter, r *http.Request) (TradeRequest, bool) {
	var req TradeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return TradeRequest{}, false
	}
	req.From = normalizeCode(req.From)
	req.To = normalizeCode(req.To)
	return req, true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrUnknownCurrency),
		errors.Is(err, domain.ErrSameCurrency):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrFeeExceedsProceeds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRefreshFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

