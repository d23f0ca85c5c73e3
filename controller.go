package backpressure

import (
	"context"
	"log/slog"
	"time"

	"github.com/nulone/mcp-backpressure/capslot"
	"github.com/nulone/mcp-backpressure/counters"
	"github.com/nulone/mcp-backpressure/waitqueue"
)

// Controller is the admission protocol's orchestrator. It owns a
// [capslot.Slot], an optional [waitqueue.Queue], and a [counters.Counters]
// instance, wired so that a capacity release either hands off directly
// to the head waiter or frees the unit — never both, and never neither.
//
// A Controller is safe for concurrent use by any number of admitters and
// releasers.
type Controller struct {
	cfg      Config
	counters *counters.Counters
	slot     *capslot.Slot
	queue    *waitqueue.Queue // nil when queueing is disabled
}

// New builds a Controller from opts. WithMaxConcurrent must be supplied
// with a value >= 1; every other option has a usable default.
func New(opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		counters: counters.New(),
		slot:     capslot.New(cfg.MaxConcurrent),
	}

	if cfg.QueueSize > 0 {
		q := waitqueue.New(cfg.QueueSize)
		q.SetFreeFunc(c.slot.ReturnUnit)
		c.slot.SetHandoffFunc(q.Offer)
		c.queue = q
	}

	return c, nil
}

// Admit runs the admission protocol for one request. It returns exactly
// one of: a [Lease] the caller must Release when it is done running its
// handler, an [*OverloadError] describing a structured rejection, or
// [ErrCancelled] if ctx was cancelled before admission completed.
//
// Admit suspends at most once, inside the wait queue, and only when the
// queue is configured and the fast path was unavailable. Every resource
// it acquires along the way — a capacity unit, a queue slot, a queued
// counter increment — is released on every exit path, including ctx
// cancellation.
func (c *Controller) Admit(ctx context.Context) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		if c.cfg.Hooks != nil {
			c.cfg.Hooks.EmitCancelled(ctx, false)
		}
		return nil, ErrCancelled
	}

	if tok, ok := c.slot.TryAcquire(); ok {
		c.counters.IncActive()
		if c.cfg.Hooks != nil {
			c.cfg.Hooks.EmitAdmitted(ctx, false, 0)
		}
		return c.lease(tok), nil
	}

	if c.queue == nil {
		return nil, c.reject(ctx, counters.ReasonConcurrencyLimit)
	}

	ticket, ok := c.queue.TryReserve()
	if !ok {
		return nil, c.reject(ctx, counters.ReasonQueueFull)
	}

	c.counters.IncQueued()
	if c.cfg.Hooks != nil {
		c.cfg.Hooks.EmitQueued(ctx)
	}
	arrival := time.Now()
	deadline := arrival.Add(c.cfg.QueueTimeout)
	outcome, tok := c.queue.Park(ctx, ticket, deadline)
	if outcome == waitqueue.TimedOut {
		// Reject while this waiter still counts as queued, so the payload
		// reflects the state that caused the rejection.
		err := c.reject(ctx, counters.ReasonQueueTimeout)
		c.counters.DecQueued()
		return nil, err
	}
	c.counters.DecQueued()

	switch outcome {
	case waitqueue.Woken:
		// ctx may have been cancelled in the same instant the handoff
		// arrived — select is not biased toward either ready case. A
		// caller that has already departed must not be handed a lease
		// it will never release; give the unit back instead.
		if err := ctx.Err(); err != nil {
			c.slot.Release(tok)
			if c.cfg.Hooks != nil {
				c.cfg.Hooks.EmitCancelled(ctx, true)
			}
			return nil, ErrCancelled
		}
		c.counters.IncActive()
		if c.cfg.Hooks != nil {
			c.cfg.Hooks.EmitAdmitted(ctx, true, time.Since(arrival))
		}
		return c.lease(tok), nil

	default: // waitqueue.Cancelled
		if c.cfg.Hooks != nil {
			c.cfg.Hooks.EmitCancelled(ctx, true)
		}
		return nil, ErrCancelled
	}
}

// Run is a convenience wrapper: it admits, and if admitted, runs fn with
// the lease held, releasing it unconditionally afterward.
func (c *Controller) Run(ctx context.Context, fn func(context.Context) error) error {
	lease, err := c.Admit(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(ctx)
}

// Snapshot returns the current counters: active, queued, and cumulative
// rejections by reason.
func (c *Controller) Snapshot() counters.Snapshot {
	return c.counters.Snapshot()
}

func (c *Controller) lease(tok *capslot.Token) *Lease {
	admittedAt := time.Now()
	return &Lease{
		release: func() {
			c.counters.DecActive()
			c.slot.Release(tok)
			if c.cfg.Hooks != nil {
				c.cfg.Hooks.EmitReleased(context.Background(), time.Since(admittedAt))
			}
		},
	}
}

// reject builds the structured overload error for reason. Per the
// ordering rule on rejection payloads, the snapshot is taken before the
// reject counter is incremented and before the observer runs, so the
// payload reflects the state that caused the rejection rather than the
// state after it was recorded.
func (c *Controller) reject(ctx context.Context, reason counters.Reason) error {
	snap := c.counters.Snapshot()
	c.counters.IncRejected(reason)
	c.notifyOverload(reason, snap)
	if c.cfg.Hooks != nil {
		c.cfg.Hooks.EmitRejected(ctx, reason, snap)
	}

	return &OverloadError{
		Code:           c.cfg.OverloadCode,
		Reason:         reason,
		Snapshot:       snap,
		MaxConcurrent:  c.cfg.MaxConcurrent,
		QueueSize:      c.cfg.QueueSize,
		QueueTimeoutMS: c.cfg.QueueTimeout.Milliseconds(),
		RetryAfterMS:   c.cfg.RetryAfterMS,
	}
}

// notifyOverload invokes the configured observer, if any, isolating the
// caller from any panic it raises. An observer failure must never
// replace the structured overload result with an unrelated error.
func (c *Controller) notifyOverload(reason counters.Reason, snap counters.Snapshot) {
	if c.cfg.OnOverload == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.cfg.Logger.Warn("mcp-backpressure: on_overload observer panicked",
				slog.Any("panic", r), slog.String("reason", string(reason)))
		}
	}()
	c.cfg.OnOverload(reason, snap)
}
