package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"anchord/internal/metrics"
)

// jitterFraction spreads each delay over [d - d*f, d + d*f]
const jitterFraction = 0.2

// ExponentialBackoffStrategy retries recoverable failures, doubling the
// delay after each attempt up to maxDelay
type ExponentialBackoffStrategy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(maxRetries int, initialDelay, maxDelay time.Duration) *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

// Execute runs operation until it succeeds, fails with an error that is not
// recoverable, runs out of attempts or ctx ends
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			if attempt > 0 {
				slog.Info("Ledger call succeeded after retry",
					"attempt", attempt+1,
					"max_attempts", s.maxRetries+1)
			}
			return nil
		}

		if !isRecoverableError(lastErr) {
			slog.Debug("Non-recoverable ledger error, failing immediately",
				"error", lastErr,
				"attempt", attempt+1)
			return lastErr
		}

		if attempt == s.maxRetries {
			break
		}

		delay := s.backoff(attempt)
		slog.Warn("Ledger call failed, retrying with exponential backoff",
			"attempt", attempt+1,
			"max_attempts", s.maxRetries+1,
			"retry_in", delay,
			"error", lastErr)
		metrics.LedgerRetries.Inc()

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled during retry: %w", errors.Join(err, lastErr))
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

// backoff returns the jittered delay before retry number attempt+1
func (s *ExponentialBackoffStrategy) backoff(attempt int) time.Duration {
	delay := s.initialDelay
	for i := 0; i < attempt && delay < s.maxDelay; i++ {
		delay *= 2
	}
	if delay > s.maxDelay {
		delay = s.maxDelay
	}
	if delay <= 0 {
		return 0
	}

	spread := int64(float64(delay) * jitterFraction)
	if spread > 0 {
		delay += time.Duration(rand.Int64N(2*spread+1) - spread)
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Name returns the strategy name
func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}
