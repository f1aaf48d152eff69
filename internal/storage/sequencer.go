package storage

import (
	"sync"
	"time"
)

// Sequencer hands out strictly increasing millisecond timestamps. Holding it
// across a write makes commit order match timestamp order, so a poller that
// has seen everything up to T never later finds a row stamped at or before T.
type Sequencer struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewSequencer creates a sequencer reading wall time from now.
func NewSequencer(now func() time.Time) *Sequencer {
	if now == nil {
		now = time.Now
	}
	return &Sequencer{now: now}
}

// Observe raises the floor to t, used to resume after a restart.
func (s *Sequencer) Observe(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.last) {
		s.last = t.UTC().Truncate(time.Millisecond)
	}
}

// Stamp runs fn with the next timestamp while holding the sequencer.
func (s *Sequencer) Stamp(fn func(ts time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC().Truncate(time.Millisecond)
	if !ts.After(s.last) {
		ts = s.last.Add(time.Millisecond)
	}
	if err := fn(ts); err != nil {
		return err
	}
	s.last = ts
	return nil
}
