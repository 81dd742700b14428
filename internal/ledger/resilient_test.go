package ledger

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"anchord/internal/ledger/retry"
	"anchord/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyClient struct {
	Client
	tipCalls    int
	submitCalls int
	tipErrs     []error
	submitErr   error
}

func (c *flakyClient) Name() string { return "flaky" }

func (c *flakyClient) GetTip(ctx context.Context) (*models.Block, error) {
	c.tipCalls++
	if len(c.tipErrs) > 0 {
		err := c.tipErrs[0]
		c.tipErrs = c.tipErrs[1:]
		return nil, err
	}
	return &models.Block{Hash: "tip", Height: 10}, nil
}

func (c *flakyClient) Submit(ctx context.Context, signedTx []byte) (string, error) {
	c.submitCalls++
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return "txid", nil
}

func fastRetry() retry.Strategy {
	return retry.NewExponentialBackoffStrategy(3, time.Millisecond, 2*time.Millisecond)
}

func TestResilientRetriesNetworkErrors(t *testing.T) {
	inner := &flakyClient{tipErrs: []error{
		StatusError("flaky", "get_tip", http.StatusBadGateway, ""),
		NetworkError("flaky", "get_tip", errors.New("connection refused")),
	}}
	r := NewResilient(inner, fastRetry(), BreakerConfig{})

	tip, err := r.GetTip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tip", tip.Hash)
	assert.Equal(t, 3, inner.tipCalls)
}

func TestResilientDoesNotRetryApplicationErrors(t *testing.T) {
	inner := &flakyClient{tipErrs: []error{
		StatusError("flaky", "get_tip", http.StatusNotFound, ""),
	}}
	r := NewResilient(inner, fastRetry(), BreakerConfig{})

	_, err := r.GetTip(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 1, inner.tipCalls)
}

func TestResilientNeverRetriesSubmit(t *testing.T) {
	inner := &flakyClient{submitErr: NetworkError("flaky", "submit", errors.New("connection reset by peer"))}
	r := NewResilient(inner, fastRetry(), BreakerConfig{})

	_, err := r.Submit(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, 1, inner.submitCalls)
}

func TestResilientBreakerOpens(t *testing.T) {
	var errs []error
	for i := 0; i < 10; i++ {
		errs = append(errs, NetworkError("flaky", "get_tip", errors.New("connection refused")))
	}
	inner := &flakyClient{tipErrs: errs}
	r := NewResilient(inner, retry.NewNoRetryStrategy(), BreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
		HalfOpenRequests:    1,
	})

	for i := 0; i < 2; i++ {
		_, err := r.GetTip(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.tipCalls)

	_, err := r.GetTip(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.True(t, IsNetwork(err))
	assert.Equal(t, 2, inner.tipCalls, "open breaker must not reach the backend")
}

func TestResilientBreakerIgnoresApplicationErrors(t *testing.T) {
	var errs []error
	for i := 0; i < 5; i++ {
		errs = append(errs, StatusError("flaky", "get_tip", http.StatusNotFound, ""))
	}
	inner := &flakyClient{tipErrs: errs}
	r := NewResilient(inner, retry.NewNoRetryStrategy(), BreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	})

	for i := 0; i < 5; i++ {
		_, err := r.GetTip(context.Background())
		assert.True(t, errors.Is(err, ErrNotFound))
	}
	assert.Equal(t, 5, inner.tipCalls)
}
