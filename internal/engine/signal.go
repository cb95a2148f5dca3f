package engine

import (
	"context"
	"sync"
	"time"
)

// decision is what the scheduler should do with the dirty signal right now
type decision int

const (
	decisionIdle decision = iota
	decisionFire
	decisionHold
)

// DirtySignal records that the mirrored state is stale. Producers (the event
// stream and the command dispatcher) set it; only the scheduler clears it.
type DirtySignal struct {
	mu        sync.Mutex
	pending   bool
	immediate bool
	lastEvent time.Time

	// wake holds at most one token; a send is "set", a receive is "clear".
	wake chan struct{}
}

// NewDirtySignal creates a clear signal
func NewDirtySignal() *DirtySignal {
	return &DirtySignal{
		wake: make(chan struct{}, 1),
	}
}

// MarkEvent records an event from the stream. Immediate events also
// request a refresh without a settle delay.
func (s *DirtySignal) MarkEvent(immediate bool) {
	s.mu.Lock()
	s.lastEvent = time.Now()
	s.pending = true
	if immediate {
		s.immediate = true
	}
	s.mu.Unlock()
	s.Wake()
}

// MarkImmediate requests a refresh with no coalescing delay
func (s *DirtySignal) MarkImmediate() {
	s.mu.Lock()
	s.pending = true
	s.immediate = true
	s.mu.Unlock()
	s.Wake()
}

// Wake unblocks a waiting scheduler without changing state
func (s *DirtySignal) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a refresh is outstanding
func (s *DirtySignal) Pending() (pending, immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.immediate
}

// Wait blocks until woken. It returns false when ctx is done.
func (s *DirtySignal) Wait(ctx context.Context) bool {
	select {
	case <-s.wake:
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitTimeout blocks until woken or d elapses. It returns false when ctx is done.
func (s *DirtySignal) WaitTimeout(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.wake:
		return true
	case <-timer.C:
		// A wake racing the timer is dropped; the caller re-checks state.
		s.clearWake()
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *DirtySignal) clearWake() {
	select {
	case <-s.wake:
	default:
	}
}

// take decides, and clears, in one critical section. Immediate requests fire
// at once; debounced ones fire when window has passed since the last event,
// otherwise take reports how long to hold.
func (s *DirtySignal) take(window time.Duration) (decision, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return decisionIdle, 0
	}
	if s.immediate {
		s.pending = false
		s.immediate = false
		return decisionFire, 0
	}

	elapsed := time.Since(s.lastEvent)
	if elapsed >= window {
		s.pending = false
		return decisionFire, 0
	}
	return decisionHold, window - elapsed
}
