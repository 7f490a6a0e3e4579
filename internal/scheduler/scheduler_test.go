package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func TestAfter_FiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	defer s.Stop()

	var fired atomic.Int32
	s.After("offer", 30*time.Second, func() { fired.Add(1) })
	require.True(t, s.Active("offer"))

	clock.Advance(29 * time.Second)
	require.Never(t, func() bool { return fired.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, waitFor, 5*time.Millisecond)
	require.False(t, s.Active("offer"))

	clock.Advance(time.Minute)
	require.Never(t, func() bool { return fired.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestAfter_CancelPreventsFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	defer s.Stop()

	var fired atomic.Bool
	s.After("offer", time.Second, func() { fired.Store(true) })
	s.Cancel("offer")

	clock.Advance(2 * time.Second)
	require.Never(t, fired.Load, 50*time.Millisecond, 5*time.Millisecond)
	require.False(t, s.Active("offer"))
}

func TestAfter_ReplaceSameName(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	defer s.Stop()

	var first, second atomic.Bool
	s.After("offer", time.Second, func() { first.Store(true) })
	s.After("offer", 2*time.Second, func() { second.Store(true) })

	clock.Advance(3 * time.Second)
	require.Eventually(t, second.Load, waitFor, 5*time.Millisecond)
	require.False(t, first.Load())
}

func TestEvery_TicksUntilCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	defer s.Stop()

	ticks := make(chan struct{}, 10)
	s.Every("telemetry", 10*time.Second, func() { ticks <- struct{}{} })

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	for range 3 {
		clock.Advance(10 * time.Second)
		select {
		case <-ticks:
		case <-time.After(waitFor):
			t.Fatalf("tick was not delivered")
		}
	}

	s.Cancel("telemetry")
	clock.Advance(10 * time.Second)
	require.Never(t, func() bool { return len(ticks) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestStop_RejectsNewTasks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	s.Stop()

	s.After("offer", time.Second, func() {})
	s.Every("telemetry", time.Second, func() {})
	require.False(t, s.Active("offer"))
	require.False(t, s.Active("telemetry"))
}
