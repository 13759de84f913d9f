package jitter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuration_Range(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Duration(time.Second, DefaultJitter)
		require.GreaterOrEqual(t, d, time.Second)
		require.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestExponentialBackoff_CapsAtMax(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, ExponentialBackoff(100*time.Millisecond, time.Second, 0, 0))
	require.Equal(t, 400*time.Millisecond, ExponentialBackoff(100*time.Millisecond, time.Second, 2, 0))
	require.Equal(t, time.Second, ExponentialBackoff(100*time.Millisecond, time.Second, 10, 0))
}

func TestBackoff_WaitRespectsContext(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, b.Wait(ctx, 3), context.Canceled)
}

func TestBackoff_ZeroBase(t *testing.T) {
	b := NewBackoff(0, time.Second)
	require.Zero(t, b.Delay(5))
	require.NoError(t, b.Wait(context.Background(), 5))
}
