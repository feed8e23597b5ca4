package connection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gheeres/ricoh-go/pkg/transport"
)

// DefaultMaxAttempts is the number of calls made before giving up.
const DefaultMaxAttempts = 3

// RetryConfig configures a Retrier.
type RetryConfig struct {
	// MaxAttempts is the total number of calls (default: 3).
	MaxAttempts int

	// Backoff spaces retries out. Nil or a zero Initial retries
	// immediately.
	Backoff *BackoffConfig

	// IsTransient decides whether an error is retried
	// (default: transport.IsTransient).
	IsTransient func(error) bool

	// Logger receives a warning per retry. Nil disables logging.
	Logger *slog.Logger
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		IsTransient: transport.IsTransient,
	}
}

// Retrier repeats calls to one host that fail transiently.
type Retrier struct {
	host   string
	config RetryConfig
	logger *slog.Logger
}

// NewRetrier creates a Retrier for host.
func NewRetrier(host string, config RetryConfig) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.IsTransient == nil {
		config.IsTransient = transport.IsTransient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retrier{host: host, config: config, logger: logger}
}

// Host returns the host named in wrapped errors.
func (r *Retrier) Host() string {
	return r.host
}

// MaxAttempts returns the attempt ceiling.
func (r *Retrier) MaxAttempts() int {
	return r.config.MaxAttempts
}

// Do calls fn until it succeeds, fails with a non-transient error or the
// attempt ceiling is reached. Any failure is returned as an
// *OperationFailedError.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var delays *backoff
	if r.config.Backoff.Enabled() {
		delays = newBackoff(*r.config.Backoff)
	}

	var last error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			r.logger.Warn("retrying operation",
				"host", r.host,
				"operation", operation,
				"attempt", attempt,
				"maxAttempts", r.config.MaxAttempts,
				"error", last)

			if delays != nil {
				if err := sleep(ctx, delays.wait()); err != nil {
					return r.fail(operation, attempt-1, err)
				}
			} else if err := ctx.Err(); err != nil {
				return r.fail(operation, attempt-1, err)
			}
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !r.config.IsTransient(last) {
			return r.fail(operation, attempt, last)
		}
	}
	return r.fail(operation, r.config.MaxAttempts, last)
}

func (r *Retrier) fail(operation string, attempts int, err error) error {
	var of *OperationFailedError
	if errors.As(err, &of) {
		return err
	}
	return &OperationFailedError{Host: r.host, Operation: operation, Attempts: attempts, Err: err}
}

// Retry is Do for calls that return a value.
func Retry[T any](ctx context.Context, r *Retrier, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
