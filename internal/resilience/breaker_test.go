package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(_ context.Context) (int, error) {
	return 0, statusError(errors.New("down"), 503)
}

func succeeding(_ context.Context) (int, error) {
	return 1, nil
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("web", 2, time.Minute, nil)
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	assert.Equal(t, BreakerClosed, b.State())
	_, _ = Call(ctx, b, failing)
	assert.Equal(t, BreakerOpen, b.State())

	_, err := Call(ctx, b, succeeding)
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreaker_NonTrippingErrorsDoNotCount(t *testing.T) {
	b := NewBreaker("web", 1, time.Minute, nil)
	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		return 0, statusError(errors.New("bad"), 400)
	})
	require.Error(t, err)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenTrialCall(t *testing.T) {
	now := time.Now()
	b := NewBreaker("web", 1, 10*time.Second, nil)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	require.Equal(t, BreakerOpen, b.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, BreakerHalfOpen, b.State())

	v, err := Call(ctx, b, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker("web", 3, 10*time.Second, nil)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	for range 3 {
		_, _ = Call(ctx, b, failing)
	}
	now = now.Add(time.Minute)
	_, err := Call(ctx, b, failing)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
