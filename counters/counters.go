// Package counters holds the atomic diagnostic tallies the admission
// controller reports: how many requests are active, how many are parked
// in the wait queue, and cumulative rejections broken down by reason.
//
// Every mutator is atomic with respect to concurrent mutators. A
// [Snapshot] need not be globally consistent across fields — it is a
// diagnostic projection embedded in overload payloads, not an accounting
// ledger — but each individual field is read atomically.
package counters

import "go.uber.org/atomic"

// Reason identifies why an admission attempt was rejected.
type Reason string

const (
	// ReasonConcurrencyLimit means no capacity slot was available and no
	// queue is configured.
	ReasonConcurrencyLimit Reason = "concurrency_limit"
	// ReasonQueueFull means the wait queue was configured but at capacity.
	ReasonQueueFull Reason = "queue_full"
	// ReasonQueueTimeout means a parked waiter's deadline fired before a
	// capacity slot was handed to it.
	ReasonQueueTimeout Reason = "queue_timeout"
)

// Snapshot is an immutable projection of the counters taken at a single
// instant, suitable for embedding in a rejection payload.
type Snapshot struct {
	Active                   int64
	Queued                   int64
	RejectedTotal            int64
	RejectedConcurrencyLimit int64
	RejectedQueueFull        int64
	RejectedQueueTimeout     int64
}

// Counters is a set of atomic tallies shared between every admitter and
// releaser of a single [github.com/nulone/mcp-backpressure.Controller].
// It is safe for concurrent use.
type Counters struct {
	active                   atomic.Int64
	queued                   atomic.Int64
	rejectedTotal            atomic.Int64
	rejectedConcurrencyLimit atomic.Int64
	rejectedQueueFull        atomic.Int64
	rejectedQueueTimeout     atomic.Int64
}

// New creates a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

// IncActive records that one more request began executing.
func (c *Counters) IncActive() { c.active.Inc() }

// DecActive records that one executing request finished, in any way.
func (c *Counters) DecActive() { c.active.Dec() }

// IncQueued records that one more request was parked in the wait queue.
func (c *Counters) IncQueued() { c.queued.Inc() }

// DecQueued records that one parked request left the wait queue, in any way.
func (c *Counters) DecQueued() { c.queued.Dec() }

// Active returns the current number of executing requests.
func (c *Counters) Active() int64 { return c.active.Load() }

// Queued returns the current number of parked requests.
func (c *Counters) Queued() int64 { return c.queued.Load() }

// IncRejected increments the cumulative rejection tally for reason, along
// with the overall total. Callers must read any snapshot they intend to
// attach to the rejection payload before calling IncRejected, so the
// payload reflects the state that caused the rejection rather than the
// state after it was recorded.
func (c *Counters) IncRejected(reason Reason) {
	c.rejectedTotal.Inc()
	switch reason {
	case ReasonConcurrencyLimit:
		c.rejectedConcurrencyLimit.Inc()
	case ReasonQueueFull:
		c.rejectedQueueFull.Inc()
	case ReasonQueueTimeout:
		c.rejectedQueueTimeout.Inc()
	}
}

// Snapshot takes an immutable, field-wise-atomic projection of the
// current counts. It is not required to be consistent across fields.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Active:                   c.active.Load(),
		Queued:                   c.queued.Load(),
		RejectedTotal:            c.rejectedTotal.Load(),
		RejectedConcurrencyLimit: c.rejectedConcurrencyLimit.Load(),
		RejectedQueueFull:        c.rejectedQueueFull.Load(),
		RejectedQueueTimeout:     c.rejectedQueueTimeout.Load(),
	}
}
