// Package frameslot provides the single-slot hand-off buffer between the
// acquisition and inference workers.
//
// The slot holds at most one frame. A producer never blocks: publishing over
// an unconsumed frame discards the old one. Under load this deliberately
// prefers freshness over completeness; dropped frames are counted, not
// treated as errors.
package frameslot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Slot is a single-producer/single-consumer, capacity-1, overwrite-on-full
// frame buffer.
type Slot struct {
	mu     sync.Mutex
	frame  *types.Frame
	closed bool

	// notify carries at most one wakeup token for a blocked Take.
	notify chan struct{}

	drops atomic.Uint64
}

// New creates an empty slot.
func New() *Slot {
	return &Slot{
		notify: make(chan struct{}, 1),
	}
}

// Put publishes a frame without blocking. If a previous frame is still
// unconsumed it is replaced and counted as dropped. Put on a closed slot is
// a no-op.
func (s *Slot) Put(frame *types.Frame) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.frame != nil {
		s.drops.Add(1)
	}
	s.frame = frame
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Take blocks until a frame is available or the timeout expires.
// The second return is false on timeout or after Close.
func (s *Slot) Take(timeout time.Duration) (*types.Frame, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if s.frame != nil {
			frame := s.frame
			s.frame = nil
			s.mu.Unlock()
			return frame, true
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, false
		}

		// A token may be stale (frame already consumed); the loop re-checks.
		select {
		case <-s.notify:
		case <-deadline.C:
			return nil, false
		}
	}
}

// Close marks the slot closed and wakes a blocked Take. Idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.frame = nil
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Drops returns the lifetime count of frames discarded by overwrite.
func (s *Slot) Drops() uint64 {
	return s.drops.Load()
}
