package engine

import (
	"fmt"
	"time"

	"fxwallet/internal/domain"
	"fxwallet/internal/execution"
	"fxwallet/internal/rates"
	"fxwallet/pkg/safe"
)

// DefaultRefreshInterval is how often the rate simulation runs.
const DefaultRefreshInterval = 30 * time.Second

// Config holds everything needed to construct an Engine.
type Config struct {
	Base            string
	Currencies      []domain.Currency
	SeedBalance     float64 // Credited in Base at construction
	Fees            execution.FeeSchedule
	Favorites       []string
	RefreshInterval time.Duration
	RefreshLatency  time.Duration // Simulated network delay per refresh
	Perturb         *rates.PerturbConfig // nil selects rates.DefaultPerturbConfig
}

// Validate checks the parts of the config not covered by rates.NewTable.
func (c Config) Validate() error {
	if c.Base == "" {
		return fmt.Errorf("base currency is required")
	}
	if !safe.IsFinite(c.SeedBalance) || c.SeedBalance < 0 {
		return fmt.Errorf("seed balance must be finite and non-negative, got %v", c.SeedBalance)
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative, got %s", c.RefreshInterval)
	}
	if c.RefreshLatency < 0 {
		return fmt.Errorf("refresh latency must not be negative, got %s", c.RefreshLatency)
	}
	if p := c.Perturb; p != nil {
		if !safe.IsFinite(p.RateAmplitude) || p.RateAmplitude < 0 || p.RateAmplitude >= 1 {
			return fmt.Errorf("rate amplitude must be in [0, 1), got %v", p.RateAmplitude)
		}
		if !safe.IsFinite(p.ChangeAmplitude) || p.ChangeAmplitude < 0 {
			return fmt.Errorf("change amplitude must be finite and non-negative, got %v", p.ChangeAmplitude)
		}
	}
	return nil
}
