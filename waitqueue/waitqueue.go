// Package waitqueue implements the bounded FIFO parking area an
// admission controller uses to hold requests that arrive while capacity
// is exhausted.
//
// A waiter is parked from the instant its queue slot is reserved until
// exactly one of three outcomes completes: it is handed a capacity
// token, its deadline fires, or its context is cancelled. On every
// outcome the queue slot is released exactly once, before [Queue.Park]
// returns.
package waitqueue

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/nulone/mcp-backpressure/capslot"
)

// Outcome is the terminal state of a single Park call.
type Outcome int

const (
	// Woken means a capacity token was handed to the waiter.
	Woken Outcome = iota
	// TimedOut means the waiter's deadline fired before a handoff arrived.
	TimedOut
	// Cancelled means the waiter's context was cancelled before a handoff arrived.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Woken:
		return "woken"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// entry is the internal bookkeeping for one parked waiter. It lives in
// the FIFO list from the moment Park pushes it on until either Offer
// removes it (handoff) or Park's own departure path removes it (timeout
// or cancellation); whichever happens first, under q.mu, wins.
type entry struct {
	ch      chan *capslot.Token // buffered 1; written at most once
	removed bool
}

// Queue is a bounded FIFO of parked waiters. It is safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	waiters  *list.List
	capacity int
	reserved int

	// free is called when a token re-offered after a late handoff could
	// not be handed to any waiter — the queue was empty at the time of the
	// re-offer. It is wired by the controller to the backing
	// capslot.Slot's raw free-pool return.
	free func()
}

// New creates a Queue that can hold at most capacity parked waiters.
func New(capacity int) *Queue {
	return &Queue{
		waiters:  list.New(),
		capacity: capacity,
	}
}

// SetFreeFunc installs the fallback invoked when the internal re-offer
// path (see [Queue.Park]) finds no waiter to accept a token. A direct
// [Queue.Offer] call never invokes it: Offer returns false and leaves the
// token with its caller. Wire it to the capslot.Slot's ReturnUnit.
func (q *Queue) SetFreeFunc(fn func()) {
	q.free = fn
}

// Len returns the number of waiters currently reserved or parked.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reserved
}

// Ticket holds a reserved queue slot that has not yet been parked.
// Callers must either Park it or call [Ticket.Release] promptly; an
// unused ticket that is simply dropped leaks its queue slot.
type Ticket struct {
	q        *Queue
	released bool
}

// TryReserve admits one more parker if the queue is not at capacity.
// On success the caller owns the returned Ticket's queue slot until it
// is parked or released.
func (q *Queue) TryReserve() (*Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.reserved >= q.capacity {
		return nil, false
	}
	q.reserved++
	return &Ticket{q: q}, true
}

// Release frees the ticket's queue slot without parking it. Calling it
// more than once, or calling it after the ticket has been consumed by
// [Queue.Park], has no effect.
func (t *Ticket) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	t.q.releaseSlot()
}

func (q *Queue) releaseSlot() {
	q.mu.Lock()
	q.reserved--
	q.mu.Unlock()
}

// Park suspends the caller until a capacity token is handed to it, its
// deadline passes, or ctx is cancelled — whichever happens first. The
// ticket's queue slot is released exactly once, before Park returns,
// regardless of outcome.
//
// Park is the only suspension point in the admission protocol. No other
// step may block, and there is no suspension between reserving a
// resource and arming its release — the ticket is consumed synchronously
// on entry to Park.
func (q *Queue) Park(ctx context.Context, ticket *Ticket, deadline time.Time) (Outcome, *capslot.Token) {
	if ticket == nil || ticket.released {
		return Cancelled, nil
	}
	ticket.released = true
	defer q.releaseSlot()

	e := &entry{ch: make(chan *capslot.Token, 1)}
	q.mu.Lock()
	elem := q.waiters.PushBack(e)
	q.mu.Unlock()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case tok := <-e.ch:
		return Woken, tok

	case <-timer.C:
		if tok, late := q.abandon(elem, e); late {
			q.reoffer(tok)
		}
		return TimedOut, nil

	case <-ctx.Done():
		if tok, late := q.abandon(elem, e); late {
			q.reoffer(tok)
		}
		return Cancelled, nil
	}
}

// abandon removes e from the queue if it is still waiting there. If a
// handoff has already claimed e (Offer removed it and wrote the token
// concurrently with this departure), abandon instead drains that token
// — the send is guaranteed to have already happened, because Offer only
// ever marks removed and writes to the channel inside the same critical
// section — and reports it as arriving too late for this waiter.
func (q *Queue) abandon(elem *list.Element, e *entry) (tok *capslot.Token, late bool) {
	q.mu.Lock()
	if e.removed {
		q.mu.Unlock()
		return <-e.ch, true
	}
	e.removed = true
	q.waiters.Remove(elem)
	q.mu.Unlock()
	return nil, false
}

// reoffer hands a token that arrived too late for its intended waiter to
// the new head of the queue, iterating until one accepts or the queue is
// empty, in which case it falls back to the free pool.
func (q *Queue) reoffer(tok *capslot.Token) {
	if !q.Offer(tok) && q.free != nil {
		q.free()
	}
}

// Offer hands tok to the current head waiter, if any, removing it from
// the queue. It iterates forward until it finds a waiter that has not
// already departed, or the queue is empty. It never blocks: every
// waiter's channel is buffered and written at most once.
func (q *Queue) Offer(tok *capslot.Token) bool {
	for {
		q.mu.Lock()
		elem := q.waiters.Front()
		if elem == nil {
			q.mu.Unlock()
			return false
		}
		e := elem.Value.(*entry)
		q.waiters.Remove(elem)
		e.removed = true
		e.ch <- tok
		q.mu.Unlock()
		return true
	}
}
