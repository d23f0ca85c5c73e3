// Package capslot implements the capacity resource an admission
// controller acquires from: a counting pool of a fixed size, with
// non-blocking acquisition and cancellation-safe, idempotent release.
//
// A [Slot] never blocks. Callers that need to wait for capacity to free
// up do so through github.com/nulone/mcp-backpressure/waitqueue; Slot's
// only job is to track the free count and, optionally, hand a freed unit
// directly to a waiter instead of ever exposing an observable "free"
// state in between — see [Slot.SetHandoffFunc].
package capslot

import "go.uber.org/atomic"

// Token is an opaque handle on one unit of capacity. Its zero value is
// not valid; obtain one from [Slot.TryAcquire] or a handoff. Releasing a
// Token through [Slot.Release] more than once is a no-op after the first
// call — the type disallows a double release from having any effect.
type Token struct {
	released atomic.Bool
}

// Slot is a counting resource of a fixed initial size. It is safe for
// concurrent use.
type Slot struct {
	pool    chan struct{}
	handoff func(*Token) bool
}

// New creates a Slot with max outstanding units.
func New(max int) *Slot {
	s := &Slot{pool: make(chan struct{}, max)}
	for i := 0; i < max; i++ {
		s.pool <- struct{}{}
	}
	return s
}

// SetHandoffFunc installs the function Release calls with a freshly
// minted Token before it would otherwise return the unit to the free
// pool. If fn returns true it has taken ownership of the token (typically
// by delivering it to a parked waiter); Slot does not touch the free
// count in that case. If fn returns false, or no handoff function is
// installed, Release returns the unit to the pool directly.
//
// This makes the handoff-or-free decision atomic from an observer's
// point of view: nothing can see the unit as "free" and simultaneously
// see a non-empty wait queue, because the handoff attempt always happens
// before the free count is touched.
func (s *Slot) SetHandoffFunc(fn func(*Token) bool) {
	s.handoff = fn
}

// TryAcquire attempts to take one unit without blocking. On success it
// returns a fresh Token the caller owns until it calls [Slot.Release].
func (s *Slot) TryAcquire() (*Token, bool) {
	select {
	case <-s.pool:
		return &Token{}, true
	default:
		return nil, false
	}
}

// Release returns tok's unit of capacity. It is idempotent: only the
// first call for a given Token has any effect, matching the invariant
// that a unit of capacity is released exactly once per acquisition.
//
// If a handoff function is installed, Release mints a fresh Token and
// offers it there first; only if the offer is declined does the unit
// return to the free pool.
func (s *Slot) Release(tok *Token) {
	if tok == nil {
		return
	}
	if !tok.released.CompareAndSwap(false, true) {
		return
	}
	if s.handoff != nil {
		next := &Token{}
		if s.handoff(next) {
			return
		}
	}
	s.ReturnUnit()
}

// ReturnUnit pushes one unit back into the free pool directly, bypassing
// any handoff function. It exists for callers (the wait queue's
// abandon-vs-handoff race resolution) that have already tried every
// waiter and must fall back to making the unit plainly free.
func (s *Slot) ReturnUnit() {
	s.pool <- struct{}{}
}

// Available reports the number of units currently free. It is a point
// -in-time estimate useful for diagnostics only.
func (s *Slot) Available() int {
	return len(s.pool)
}

// Capacity reports the configured maximum number of units.
func (s *Slot) Capacity() int {
	return cap(s.pool)
}
