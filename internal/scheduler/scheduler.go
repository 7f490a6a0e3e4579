// Package scheduler runs named single-shot and periodic callbacks. Scheduling a
// name that is already active replaces the previous task, and every task can be
// cancelled deterministically, so callers never leak timers across state changes.
package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type task struct {
	stop func()
	gen  uint64
}

type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	tasks  map[string]task
	gen    uint64
	closed bool
	wg     sync.WaitGroup
}

func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		tasks: make(map[string]task),
	}
}

// After runs fn once after d. The callback is skipped if the task was cancelled
// or replaced before it fired.
func (s *Scheduler) After(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.cancelLocked(name)

	s.gen++
	gen := s.gen
	timer := s.clock.AfterFunc(d, func() {
		if !s.finish(name, gen) {
			return
		}
		fn()
	})
	s.tasks[name] = task{stop: func() { timer.Stop() }, gen: gen}
}

// Every runs fn every d until cancelled. Ticks are delivered from a dedicated
// goroutine; a slow fn delays, but never overlaps, the next tick.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.cancelLocked(name)

	s.gen++
	gen := s.gen
	ticker := s.clock.NewTicker(d)
	done := make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				if !s.active(name, gen) {
					return
				}
				fn()
			}
		}
	}()

	s.tasks[name] = task{stop: func() { close(done) }, gen: gen}
}

// Cancel stops the named task. Unknown names are ignored.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(name)
}

// Active reports whether a task with this name is scheduled.
func (s *Scheduler) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Stop cancels every task and waits for periodic goroutines to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	for name := range s.tasks {
		s.cancelLocked(name)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) cancelLocked(name string) {
	if t, ok := s.tasks[name]; ok {
		t.stop()
		delete(s.tasks, name)
	}
}

func (s *Scheduler) active(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	return ok && t.gen == gen
}

// finish removes a fired single-shot task; false means it was cancelled or replaced.
func (s *Scheduler) finish(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok || t.gen != gen {
		return false
	}
	delete(s.tasks, name)
	return true
}
