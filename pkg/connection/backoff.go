package connection

import (
	"math/rand/v2"
	"time"
)

// Backoff defaults for fields left zero in a BackoffConfig.
const (
	DefaultBackoffMax        = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultBackoffJitter     = 0.1
)

// BackoffConfig spaces retries out. The n-th retry waits
// Initial * Multiplier^(n-1), capped at Max, plus up to Jitter of that.
type BackoffConfig struct {
	// Initial is the wait before the first retry. Zero disables backoff.
	Initial time.Duration

	// Max caps a single wait (default: 5s, never below Initial).
	Max time.Duration

	// Multiplier grows the wait per retry (default: 2).
	Multiplier float64

	// Jitter is the random fraction added to each wait (default: 0.1,
	// negative disables).
	Jitter float64
}

// Enabled reports whether the configuration produces any wait.
func (c *BackoffConfig) Enabled() bool {
	return c != nil && c.Initial > 0
}

// backoff hands out the waits of one Retrier.Do call.
type backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
}

func newBackoff(cfg BackoffConfig) *backoff {
	if cfg.Max <= 0 {
		cfg.Max = DefaultBackoffMax
	}
	cfg.Max = max(cfg.Max, cfg.Initial)
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultBackoffMultiplier
	}
	switch {
	case cfg.Jitter == 0:
		cfg.Jitter = DefaultBackoffJitter
	case cfg.Jitter < 0:
		cfg.Jitter = 0
	}
	return &backoff{next: cfg.Initial, max: cfg.Max, multiplier: cfg.Multiplier, jitter: cfg.Jitter}
}

// wait returns the delay before the next retry and grows the following one.
func (b *backoff) wait() time.Duration {
	d := b.next
	b.next = min(time.Duration(float64(b.next)*b.multiplier), b.max)
	if b.jitter > 0 {
		d += time.Duration(float64(d) * b.jitter * rand.Float64())
	}
	return d
}
