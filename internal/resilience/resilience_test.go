package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/basebot/internal/groupcache"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 2}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := WithRetry(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, fastRetry(3))
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		err := WithRetry(context.Background(), func(context.Context) error { return boom }, fastRetry(2))
		require.ErrorIs(t, err, ErrExhaustedRetries)
		require.ErrorIs(t, err, boom)
	})

	t.Run("open circuit is not retried", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := WithRetry(context.Background(), func(context.Context) error {
			calls++
			return ErrCircuitOpen
		}, fastRetry(5))
		require.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, func(context.Context) error { return errors.New("x") }, fastRetry(3))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCircuitBreakerTrips(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 2, ResetInterval: time.Hour}, nil)
	fail := func(context.Context) error { return errors.New("down") }

	ctx := context.Background()
	require.Error(t, cb.Execute(ctx, fail))
	require.Error(t, cb.Execute(ctx, fail))

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, "open", cb.State())
}

func TestCircuitBreakerTimeout(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "slow", Timeout: 10 * time.Millisecond}, nil)
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCircuitBreakerAddsNoTimeoutByDefault(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "unbounded"}, nil)
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)

		select {
		case <-time.After(100 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	require.NoError(t, err)
}

func TestFetcher(t *testing.T) {
	t.Parallel()

	calls := 0
	next := groupcache.FetcherFunc(func(_ context.Context, groupID string) (*groupcache.GroupState, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("flaky")
		}
		return &groupcache.GroupState{ID: groupID, Subject: "ok"}, nil
	})

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "group_metadata"}, nil)
	g, err := Fetcher(next, cb, fastRetry(3)).GroupMetadata(context.Background(), "1@g.us")
	require.NoError(t, err)
	assert.Equal(t, "ok", g.Subject)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "closed", cb.State())
}
