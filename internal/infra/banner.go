package infra

import (
	"fmt"
	"io"
)

// ANSI Color Codes
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
)

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer, cfg *Config) {
	line := func(format string, args ...any) {
		fmt.Fprintf(w, "%s"+format+"%s\n", append(append([]any{ColorCyan}, args...), ColorReset)...)
	}

	fmt.Fprintln(w)
	line("###########################################################")
	line("#                                                         #")
	line("#               fxwallet Exchange Simulator               #")
	line("#                                                         #")
	line("#   BASE:       %-41s #", cfg.Engine.Base)
	line("#   CURRENCIES: %-41d #", len(cfg.Currencies))
	line("#   REFRESH:    %-41s #", cfg.Engine.RefreshInterval)
	line("#   LISTEN:     %-41s #", cfg.Server.Addr)
	line("#   VERSION:    %-41s #", cfg.App.Version)
	line("#                                                         #")
	line("###########################################################")
	fmt.Fprintln(w)
}
