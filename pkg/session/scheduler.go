package session

import (
	"sync"
	"time"
)

// Scheduler debounces a single pending task. Scheduling a new task cancels
// the previously pending one, so only the last write within the window runs.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func()
}

// NewScheduler creates a Scheduler with the given debounce window.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{delay: delay}
}

// Schedule queues task to run after the debounce window, superseding any task
// queued earlier.
func (s *Scheduler) Schedule(task func()) {
	if task == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = task
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		run := s.pending
		s.pending = nil
		s.timer = nil
		s.mu.Unlock()
		if run != nil {
			run()
		}
	})
}

// Flush runs any pending task immediately, cancelling its timer.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	run := s.pending
	s.pending = nil
	s.mu.Unlock()

	if run != nil {
		run()
	}
}

// Stop cancels any pending task without running it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}
