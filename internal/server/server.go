// Package server exposes the engine over HTTP and streams its events over
// WebSocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fxwallet/internal/engine"
	"fxwallet/internal/metrics"
)

var errRateLimited = errors.New("too many requests")

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Engine         *engine.Engine
	Metrics        *metrics.Metrics // Optional
	Hub            *Hub             // Optional
	Limiter        Limiter          // Optional, guards mutating routes
	Log            *slog.Logger
}

// Limiter admits or rejects a request.
type Limiter interface {
	Allow() bool
	RetryAfter() time.Duration
}

// Server is the HTTP front of the engine.
type Server struct {
	router  *chi.Mux
	http    *http.Server
	engine  *engine.Engine
	limiter Limiter
	log     *slog.Logger
}

// New builds the router and the underlying http.Server.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		router:  chi.NewRouter(),
		engine:  cfg.Engine,
		limiter: cfg.Limiter,
		log:     log.With(slog.String("component", "server")),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	s.router.Route("/api/v1", s.routes)
	if cfg.Hub != nil {
		s.router.Handle("/ws", cfg.Hub)
	}
	if cfg.Metrics != nil {
		s.router.Handle("/metrics", cfg.Metrics.Handler())
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Get("/currencies", s.handleListCurrencies)
	r.Get("/currencies/{code}", s.handleGetCurrency)
	r.Get("/convert", s.handleConvert)

	r.Get("/wallet", s.handleWallet)
	r.Get("/transactions", s.handleListTransactions)
	r.Get("/transactions/{id}", s.handleGetTransaction)

	r.Post("/quotes", s.handleQuote)
	r.Get("/favorites", s.handleListFavorites)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/trades", s.handleTrade)
		r.Post("/rates/refresh", s.handleRefresh)
		r.Put("/favorites/{code}", s.handleAddFavorite)
		r.Delete("/favorites/{code}", s.handleRemoveFavorite)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", slog.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}

// rateLimit rejects requests with 429 once the limiter runs dry.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			retry := s.limiter.RetryAfter()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			s.writeError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug("HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
