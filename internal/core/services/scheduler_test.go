package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

func TestScheduler_RunsDueTasks(t *testing.T) {
	s := NewScheduler(5 * time.Millisecond)
	var gossips, wakes atomic.Int32
	s.Register(domain.TaskIDGossip, "Peer gossip", 10*time.Millisecond, func(context.Context) error {
		gossips.Add(1)
		return nil
	})
	s.Register(domain.TaskIDAntiEntropy, "Anti-entropy", time.Hour, func(context.Context) error {
		wakes.Add(1)
		return errors.New("reconciler busy")
	})

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return gossips.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	require.NoError(t, <-done)

	// The hourly task ran once, on startup.
	assert.Equal(t, int32(1), wakes.Load())

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDAntiEntropy, tasks[0].ID)
	assert.Equal(t, "reconciler busy", tasks[0].LastError)
	assert.Equal(t, domain.TaskIDGossip, tasks[1].ID)
	assert.Empty(t, tasks[1].LastError)
	assert.GreaterOrEqual(t, tasks[1].Runs, 3)
}

func TestScheduler_TaskDoesNotOverlap(t *testing.T) {
	s := NewScheduler(time.Millisecond)
	var active, maxActive atomic.Int32
	release := make(chan struct{})
	s.Register("slow", "Slow", time.Millisecond, func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return nil
	})

	go func() { _ = s.Start(context.Background()) }()
	time.Sleep(30 * time.Millisecond)
	close(release)
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s := NewScheduler(0)
	assert.NoError(t, s.Stop())
	assert.Empty(t, s.Tasks())
}

func TestScheduler_ContextCancel(t *testing.T) {
	s := NewScheduler(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
}
