package orchestration

import (
	"sync"

	"github.com/agbru/mpsearch/internal/worker"
)

type slotState int

const (
	slotPending slotState = iota
	slotPublished
	slotTerminated
)

// outcomeSlot is the single-assignment rendezvous between one worker and the
// coordinator. Whichever of publish and terminate takes the lock first wins;
// the loser becomes a no-op. The outcome is enqueued while the lock is held,
// so once terminate has been called on every pending slot no further sends
// can happen and the results channel may be closed.
type outcomeSlot struct {
	mu    sync.Mutex
	state slotState
	// done is closed when the worker goroutine returns.
	done chan struct{}
}

func newOutcomeSlot() *outcomeSlot {
	return &outcomeSlot{done: make(chan struct{})}
}

// publish enqueues out unless the worker was already terminated.
func (s *outcomeSlot) publish(results chan<- worker.Outcome, out worker.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != slotPending {
		return false
	}
	results <- out
	s.state = slotPublished
	return true
}

// terminate marks the slot so that a later publish is discarded. It returns
// false if the worker had already published.
func (s *outcomeSlot) terminate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != slotPending {
		return false
	}
	s.state = slotTerminated
	return true
}

// finished reports whether the worker goroutine has returned.
func (s *outcomeSlot) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
