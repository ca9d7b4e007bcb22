package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsOnce(t *testing.T) {
	s := NewDeleteScheduler()
	defer s.Close()

	var runs atomic.Int32
	require.True(t, s.Schedule("w1", 10*time.Millisecond, func(context.Context) { runs.Add(1) }))
	assert.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestSchedulerCancel(t *testing.T) {
	s := NewDeleteScheduler()
	defer s.Close()

	var runs atomic.Int32
	s.Schedule("w1", 20*time.Millisecond, func(context.Context) { runs.Add(1) })

	assert.True(t, s.Cancel("w1"))
	assert.False(t, s.Cancel("w1"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestSchedulerReplacesPendingTimer(t *testing.T) {
	s := NewDeleteScheduler()
	defer s.Close()

	var first, second atomic.Int32
	s.Schedule("w1", 15*time.Millisecond, func(context.Context) { first.Add(1) })
	s.Schedule("w1", 30*time.Millisecond, func(context.Context) { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestSchedulerCloseStopsEverything(t *testing.T) {
	s := NewDeleteScheduler()

	var runs atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		s.Schedule(id, 20*time.Millisecond, func(context.Context) { runs.Add(1) })
	}

	s.Close()

	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Schedule("d", time.Millisecond, func(context.Context) { runs.Add(1) }))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestSchedulerCloseWaitsForRunningAction(t *testing.T) {
	s := NewDeleteScheduler()

	started := make(chan struct{})
	var sawCancel atomic.Bool
	s.Schedule("slow", time.Millisecond, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	})

	<-started
	s.Close()

	assert.True(t, sawCancel.Load())
}
