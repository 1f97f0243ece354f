package rates

import (
	"fmt"
	"math"
	"math/rand/v2"

	"fxwallet/internal/domain"
)

// Jitter returns a sample in [-1, 1].
type Jitter func() float64

// UniformJitter draws uniformly from [-1, 1) using r.
func UniformJitter(r *rand.Rand) Jitter {
	return func() float64 {
		return r.Float64()*2 - 1
	}
}

// PerturbConfig bounds one simulated market tick.
type PerturbConfig struct {
	RateAmplitude   float64 // Max relative rate move, 0.005 = ±0.5%
	ChangeAmplitude float64 // Max additive move of Change24h in percentage points
}

// DefaultPerturbConfig returns ±0.5% on rates and ±0.1pp on 24h change.
func DefaultPerturbConfig() PerturbConfig {
	return PerturbConfig{
		RateAmplitude:   0.005,
		ChangeAmplitude: 0.1,
	}
}

// Perturb returns a new table where every non-base currency has its rate
// scaled by (1 + u*RateAmplitude) and its change shifted by v*ChangeAmplitude,
// u and v drawn independently from jitter. The input table is not modified.
// A panicking or non-finite jitter source yields domain.ErrRefreshFailed.
func Perturb(t *Table, jitter Jitter, cfg PerturbConfig) (next *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("%w: jitter source panicked: %v", domain.ErrRefreshFailed, r)
		}
	}()

	currencies := t.Currencies()
	for i := range currencies {
		c := &currencies[i]
		if c.Code == t.base {
			continue
		}
		c.Rate *= 1 + clampUnit(jitter())*cfg.RateAmplitude
		c.Change24h += clampUnit(jitter()) * cfg.ChangeAmplitude
	}

	next, err = NewTable(t.base, currencies)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}
	return next, nil
}

// clampUnit limits u to [-1, 1]. NaN passes through and fails validation.
func clampUnit(u float64) float64 {
	return math.Max(-1, math.Min(1, u))
}
