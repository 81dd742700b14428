package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"anchord/internal/ledger/retry"
	"anchord/internal/metrics"
	"anchord/internal/models"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker placed in front of a backend
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" validate:"gte=1"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
	HalfOpenRequests    uint32        `yaml:"half_open_requests"`
}

// DefaultBreakerConfig returns the breaker settings used when none are configured
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Resilient decorates a Client with retries on reads and a circuit breaker on
// every call. Submit is never retried.
type Resilient struct {
	inner    Client
	strategy retry.Strategy
	breaker  *gobreaker.CircuitBreaker
}

// NewResilient wraps inner
func NewResilient(inner Client, strategy retry.Strategy, cfg BreakerConfig) *Resilient {
	if strategy == nil {
		strategy = retry.NewNoRetryStrategy()
	}

	r := &Resilient{inner: inner, strategy: strategy}
	if cfg.Enabled {
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        inner.Name(),
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			// application errors mean the backend is up and answering
			IsSuccessful: func(err error) bool {
				return err == nil || !IsNetwork(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Ledger backend circuit breaker changed state",
					"backend", name,
					"from", from.String(),
					"to", to.String(),
				)
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
	}
	return r
}

// Name returns the wrapped backend name
func (r *Resilient) Name() string {
	return r.inner.Name()
}

func call[T any](ctx context.Context, r *Resilient, op string, retryable bool, fn func() (T, error)) (T, error) {
	var result T

	attempt := func() error {
		if r.breaker == nil {
			v, err := fn()
			result = v
			return err
		}
		v, err := r.breaker.Execute(func() (interface{}, error) {
			return fn()
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return NetworkError(r.inner.Name(), op, ErrCircuitOpen)
		}
		if err != nil {
			return err
		}
		result = v.(T)
		return nil
	}

	var err error
	if retryable {
		err = r.strategy.Execute(ctx, attempt)
	} else {
		err = attempt()
	}

	if err != nil {
		kind := "unknown"
		var lerr *Error
		if errors.As(err, &lerr) {
			kind = lerr.Kind.String()
		}
		metrics.LedgerErrors.WithLabelValues(r.inner.Name(), op, kind).Inc()
		var zero T
		return zero, err
	}
	return result, nil
}

func (r *Resilient) GetTip(ctx context.Context) (*models.Block, error) {
	return call(ctx, r, "get_tip", true, func() (*models.Block, error) {
		return r.inner.GetTip(ctx)
	})
}

func (r *Resilient) GetBlock(ctx context.Context, hash string) (*models.Block, error) {
	return call(ctx, r, "get_block", true, func() (*models.Block, error) {
		return r.inner.GetBlock(ctx, hash)
	})
}

func (r *Resilient) GetUTXOs(ctx context.Context, address string) ([]models.UTXO, error) {
	return call(ctx, r, "get_utxos", true, func() ([]models.UTXO, error) {
		return r.inner.GetUTXOs(ctx, address)
	})
}

func (r *Resilient) GetBalance(ctx context.Context, address string) (int64, error) {
	return call(ctx, r, "get_balance", true, func() (int64, error) {
		return r.inner.GetBalance(ctx, address)
	})
}

func (r *Resilient) GetTransaction(ctx context.Context, hash string) (*models.LedgerTransaction, error) {
	return call(ctx, r, "get_transaction", true, func() (*models.LedgerTransaction, error) {
		return r.inner.GetTransaction(ctx, hash)
	})
}

func (r *Resilient) GetMetadataPage(ctx context.Context, label string, page, batchSize int) ([]models.MetadataEntry, error) {
	return call(ctx, r, "get_metadata_page", true, func() ([]models.MetadataEntry, error) {
		return r.inner.GetMetadataPage(ctx, label, page, batchSize)
	})
}

func (r *Resilient) GetProtocolParameters(ctx context.Context) (*models.ProtocolParameters, error) {
	return call(ctx, r, "get_protocol_parameters", true, func() (*models.ProtocolParameters, error) {
		return r.inner.GetProtocolParameters(ctx)
	})
}

func (r *Resilient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	return call(ctx, r, "submit", false, func() (string, error) {
		return r.inner.Submit(ctx, signedTx)
	})
}
