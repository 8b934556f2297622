package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("test", maxFailures, 30*time.Second)
	cb.now = clock.Now
	return cb, clock
}

var errUpstream = errors.New("upstream down")

func fail(context.Context) error { return errUpstream }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	cb, _ := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Call(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	cb, _ := newTestBreaker(2)

	require.Error(t, cb.Call(ctx, fail))
	require.NoError(t, cb.Call(ctx, ok))
	require.Error(t, cb.Call(ctx, fail))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	ctx := context.Background()
	cb, clock := newTestBreaker(1)

	require.Error(t, cb.Call(ctx, fail))
	require.Equal(t, StateOpen, cb.GetState())

	clock.t = clock.t.Add(31 * time.Second)
	require.NoError(t, cb.Call(ctx, ok))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	cb, clock := newTestBreaker(1)

	require.Error(t, cb.Call(ctx, fail))
	clock.t = clock.t.Add(31 * time.Second)
	require.Error(t, cb.Call(ctx, fail))
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Call(ctx, ok), ErrBreakerOpen)
}

func TestCircuitBreaker_CancelledCallsDoNotCount(t *testing.T) {
	cb, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestExecute(t *testing.T) {
	cb, _ := newTestBreaker(1)
	got, err := Execute(context.Background(), cb, func(context.Context) ([]string, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestJitterStaysWithinRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := jitter(time.Hour)
		assert.GreaterOrEqual(t, got, time.Hour)
		assert.Less(t, got, time.Hour+6*time.Minute)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
