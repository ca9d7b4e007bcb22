package services

import (
	"context"
	"sync"
	"time"
)

// DeleteScheduler runs one-shot delayed actions keyed by document ID.
// Every pending timer is owned by the scheduler and stopped by Close, so
// nothing outlives the server.
type DeleteScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
	closed  bool
}

// NewDeleteScheduler creates a new scheduler
func NewDeleteScheduler() *DeleteScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &DeleteScheduler{
		timers: make(map[string]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule arms fn to run once after delay. Scheduling an ID that is
// already pending replaces the earlier timer. It reports false once the
// scheduler is closed.
func (s *DeleteScheduler) Schedule(id string, delay time.Duration, fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// A replaced or cancelled timer may still fire
		if s.closed || s.timers[id] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.running.Add(1)
		s.mu.Unlock()

		defer s.running.Done()
		fn(s.ctx)
	})
	s.timers[id] = timer
	return true
}

// Cancel stops a pending action. It reports whether one was pending.
func (s *DeleteScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	return true
}

// Pending returns the number of armed timers
func (s *DeleteScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops all pending timers, cancels the context handed to running
// actions and waits for them to return.
func (s *DeleteScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.running.Wait()
}
