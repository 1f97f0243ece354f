package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"fxwallet/internal/app"
	"fxwallet/internal/infra"
)

var version = "dev"

func main() {
	flags := pflag.NewFlagSet(infra.AppName, pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config.yaml (default: ./configs/config.yaml)")
	addr := flags.String("addr", "", "HTTP listen address, overrides server.addr")
	noBanner := flags.Bool("no-banner", false, "do not print the startup banner")
	showVersion := flags.Bool("version", false, "print the version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(infra.AppName, version)
		return
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(app.Options{ConfigPath: *configPath, Addr: *addr}); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	if bootstrap.Config.App.Version == "dev" {
		bootstrap.Config.App.Version = version
	}
	if !*noBanner {
		infra.PrintBanner(os.Stdout, bootstrap.Config)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("Server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}
