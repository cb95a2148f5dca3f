package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirtySignal_TakeWhenClear(t *testing.T) {
	s := NewDirtySignal()

	d, hold := s.take(100 * time.Millisecond)
	assert.Equal(t, decisionIdle, d)
	assert.Zero(t, hold)
}

func TestDirtySignal_DebouncedEventHoldsThenFires(t *testing.T) {
	s := NewDirtySignal()
	window := 50 * time.Millisecond

	s.MarkEvent(false)
	d, hold := s.take(window)
	require.Equal(t, decisionHold, d)
	assert.True(t, hold > 0 && hold <= window, "hold %s", hold)

	pending, immediate := s.Pending()
	assert.True(t, pending)
	assert.False(t, immediate)

	time.Sleep(window)
	d, _ = s.take(window)
	assert.Equal(t, decisionFire, d)

	pending, _ = s.Pending()
	assert.False(t, pending)
}

func TestDirtySignal_ImmediateFiresAtOnce(t *testing.T) {
	s := NewDirtySignal()

	s.MarkImmediate()
	d, _ := s.take(time.Hour)
	assert.Equal(t, decisionFire, d)

	pending, immediate := s.Pending()
	assert.False(t, pending)
	assert.False(t, immediate)
}

func TestDirtySignal_ImmediateEventOverridesHold(t *testing.T) {
	s := NewDirtySignal()

	s.MarkEvent(false)
	d, _ := s.take(time.Hour)
	require.Equal(t, decisionHold, d)

	s.MarkEvent(true)
	d, _ = s.take(time.Hour)
	assert.Equal(t, decisionFire, d)
}

func TestDirtySignal_WakeCoalesces(t *testing.T) {
	s := NewDirtySignal()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.MarkEvent(false)
	}

	assert.True(t, s.Wait(ctx))

	// Only one token was stored, so this wait runs into its timer.
	start := time.Now()
	assert.True(t, s.WaitTimeout(ctx, 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDirtySignal_WaitHonoursContext(t *testing.T) {
	s := NewDirtySignal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, s.Wait(ctx))
	assert.False(t, s.WaitTimeout(ctx, time.Hour))
}
