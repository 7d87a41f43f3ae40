package scheduler

import (
	"log"
	"sync"
	"time"
)

// Scheduler arms one one-shot trigger per match. Re-scheduling a match
// replaces its pending trigger; cancelling revokes it. Timers live in
// process memory only, so callers re-arm pending triggers on startup.
type Scheduler struct {
	mu      sync.Mutex
	stopChs map[uint]chan struct{}
	handler func(matchID uint)
}

func New() *Scheduler {
	return &Scheduler{
		stopChs: make(map[uint]chan struct{}),
	}
}

// SetHandler installs the function invoked when a trigger fires. Triggers
// firing before a handler is set are dropped with a log line.
func (s *Scheduler) SetHandler(fn func(matchID uint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

func (s *Scheduler) Schedule(matchID uint, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.stopChs[matchID]; ok {
		close(ch)
	}
	stopCh := make(chan struct{})
	s.stopChs[matchID] = stopCh

	go s.wait(matchID, at, stopCh)
	log.Printf("[scheduler] match %d trigger armed for %s", matchID, at.Format(time.RFC3339))
}

func (s *Scheduler) wait(matchID uint, at time.Time, stopCh chan struct{}) {
	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()

	select {
	case <-stopCh:
		return
	case <-timer.C:
	}

	s.mu.Lock()
	if s.stopChs[matchID] == stopCh {
		delete(s.stopChs, matchID)
	}
	fn := s.handler
	s.mu.Unlock()

	if fn == nil {
		log.Printf("[scheduler] match %d trigger fired with no handler", matchID)
		return
	}
	fn(matchID)
}

func (s *Scheduler) Cancel(matchID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.stopChs[matchID]; ok {
		close(ch)
		delete(s.stopChs, matchID)
		log.Printf("[scheduler] match %d trigger revoked", matchID)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.stopChs {
		close(ch)
		delete(s.stopChs, id)
	}
}

// Pending reports whether a trigger is still armed for the match.
func (s *Scheduler) Pending(matchID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stopChs[matchID]
	return ok
}
