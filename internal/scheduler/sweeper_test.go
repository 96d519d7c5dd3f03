package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 1
}

func TestSweepScheduler_RunOnce(t *testing.T) {
	target := &countingSweeper{}
	s := NewSweepScheduler("test", target, "")

	s.RunOnce()

	assert.Equal(t, int32(1), target.calls.Load())
	assert.Equal(t, DefaultSweepSchedule, s.schedule)
}

func TestSweepScheduler_StartStop(t *testing.T) {
	target := &countingSweeper{}
	s := NewSweepScheduler("test", target, "@every 1s")

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	// Starting twice is a no-op.
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestSweepScheduler_StopsWithContext(t *testing.T) {
	s := NewSweepScheduler("test", &countingSweeper{}, "@every 1h")
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestSweepScheduler_InvalidSchedule(t *testing.T) {
	s := NewSweepScheduler("test", &countingSweeper{}, "not a schedule")

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestSweepScheduler_Sweeps(t *testing.T) {
	target := &countingSweeper{}
	s := NewSweepScheduler("test", target, "@every 1s")
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return target.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
