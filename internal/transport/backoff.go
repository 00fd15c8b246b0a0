package transport

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// BackoffConfig shapes the wait between link reopen attempts and between query
// re-sends.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// Delay returns the wait before attempt n (1-based). Without an rng, jitter uses the
// lowest factor.
func (c BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if n <= 1 || c.InitialDelay <= 0 {
		return c.InitialDelay
	}
	growth := math.Max(c.Multiplier, 1)
	d := float64(c.InitialDelay) * math.Pow(growth, float64(n-1))
	if c.MaxDelay > 0 {
		d = math.Min(d, float64(c.MaxDelay))
	}
	if c.Jitter {
		scale := 0.5
		if rng != nil {
			scale += rng.Float64()
		}
		d *= scale
	}
	return time.Duration(d)
}

// Retry calls open until it succeeds, the backoff yields no delay, or ctx ends. The
// last open error is joined with the context error.
func Retry(ctx context.Context, cfg BackoffConfig, what string, open func() error) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for n := 1; ; n++ {
		err := open()
		if err == nil {
			return nil
		}
		wait := cfg.Delay(n, rng)
		log.Warn().Err(err).Str("link", what).Int("attempt", n).Dur("retry_in", wait).Msg("transport.Retry failed")
		if wait <= 0 {
			return err
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-timer.C:
		}
	}
}
