package game

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It exists so tests can drive time by hand.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler owns a group of one-shot callbacks that are canceled together.
// Reset drops every pending callback, including ones whose timer already fired
// but have not run yet.
type Scheduler struct {
	after AfterFunc

	mu     sync.Mutex
	gen    uint64
	nextID uint64
	timers map[uint64]Timer
	closed bool
}

func NewScheduler(after AfterFunc) *Scheduler {
	if after == nil {
		after = realAfterFunc
	}
	return &Scheduler{after: after, timers: make(map[uint64]Timer)}
}

// After runs fn once after d unless canceled, reset or closed first.
func (s *Scheduler) After(d time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	gen := s.gen
	s.nextID++
	id := s.nextID
	s.timers[id] = s.after(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		live = live && !s.closed && s.gen == gen
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t, ok := s.timers[id]; ok {
			t.Stop()
			delete(s.timers, id)
		}
	}
}

// Pending is the number of callbacks not yet run or canceled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Reset cancels every pending callback.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Scheduler) resetLocked() {
	s.gen++
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Close cancels everything and refuses new callbacks.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.closed = true
}
