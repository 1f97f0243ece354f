package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fxwallet/internal/engine"
	"fxwallet/internal/event"
	"fxwallet/internal/infra"
	"fxwallet/internal/metrics"
	"fxwallet/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Options are the command line inputs to Initialize.
type Options struct {
	ConfigPath string    // Empty resolves the default locations
	Addr       string    // Overrides server.addr when set
	LogOutput  io.Writer // Defaults to stderr
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Hub     *server.Hub
	Engine  *engine.Engine
	Server  *server.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires every component. Nothing runs
// until Run.
func (b *Bootstrap) Initialize(opts Options) error {
	// 1. Config
	path := infra.ResolveConfigPath(opts.ConfigPath)
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	b.Config = cfg

	// 2. Logger
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := infra.NewLogger(cfg.Logging, out)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	b.Logger = logger
	logger.Info("🚀 Bootstrapping fxwallet...", slog.String("config", path))

	// 3. Event consumers
	b.Metrics = metrics.New()
	b.Hub = server.NewHub(logger, cfg.Server.AllowedOrigins)

	// 4. Engine
	eng, err := engine.New(cfg.ToEngineConfig(),
		engine.WithLogger(logger),
		engine.WithEventHandler(event.Fanout(b.Metrics.Observe, b.Hub.Publish)),
	)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	b.Engine = eng
	logger.Info("✅ Engine ready",
		slog.String("base", cfg.Engine.Base),
		slog.Int("currencies", len(cfg.Currencies)))

	// 5. HTTP
	srvCfg := server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Engine:         eng,
		Metrics:        b.Metrics,
		Hub:            b.Hub,
		Log:            logger,
	}
	if cfg.Server.TradeRateLimit > 0 {
		srvCfg.Limiter = infra.NewRateLimiter(cfg.Server.TradeBurst, cfg.Server.TradeRateLimit)
	}
	b.Server = server.New(srvCfg)
	return nil
}

// Run starts the refresh timer and the HTTP server, and blocks until ctx is
// done or the server fails. Shutdown is graceful in both cases.
func (b *Bootstrap) Run(ctx context.Context) error {
	if err := b.Engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer b.Engine.Close()

	errCh := make(chan error, 1)
	go func() {
		if err := b.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	b.Logger.InfoContext(ctx, "✨ fxwallet fully operational. Press Ctrl+C to exit.",
		slog.String("addr", b.Server.Addr()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	b.Logger.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	b.Hub.Close()
	if err := b.Server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
