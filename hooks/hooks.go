// Package hooks supplements the single on_overload observer with a
// lifecycle registry: extensions that want to react to admission,
// queueing, release, and cancellation events without being threaded
// through every call site.
//
// Hooks are best-effort and isolated from each other: a failing or
// panicking hook is logged and skipped, never propagated to the
// admission path that triggered it.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/nulone/mcp-backpressure/counters"
)

// Extension is the base interface every hook implementation satisfies.
// Extensions opt into individual lifecycle events by additionally
// implementing one or more of the interfaces below.
type Extension interface {
	Name() string
}

// Admitted is notified when a request is admitted, either immediately
// or after a wait.
type Admitted interface {
	OnAdmitted(ctx context.Context, queued bool, waited time.Duration) error
}

// Queued is notified when a request is parked in the wait queue.
type Queued interface {
	OnQueued(ctx context.Context) error
}

// Rejected is notified when a request is rejected with an overload reason.
type Rejected interface {
	OnRejected(ctx context.Context, reason counters.Reason, snapshot counters.Snapshot) error
}

// Cancelled is notified when a request's context is cancelled before
// admission completes.
type Cancelled interface {
	OnCancelled(ctx context.Context, wasQueued bool) error
}

// Released is notified when an admitted request releases its lease.
type Released interface {
	OnReleased(ctx context.Context, held time.Duration) error
}

type admittedEntry struct {
	name string
	hook Admitted
}

type queuedEntry struct {
	name string
	hook Queued
}

type rejectedEntry struct {
	name string
	hook Rejected
}

type cancelledEntry struct {
	name string
	hook Cancelled
}

type releasedEntry struct {
	name string
	hook Released
}

// Registry holds registered extensions and dispatches lifecycle events
// to the ones that implement each event's interface. It type-caches
// extensions at registration time so each Emit call iterates only over
// extensions relevant to that event.
type Registry struct {
	logger     *slog.Logger
	extensions []Extension

	admitted  []admittedEntry
	queued    []queuedEntry
	rejected  []rejectedEntry
	cancelled []cancelledEntry
	released  []releasedEntry
}

// NewRegistry creates an empty Registry. A nil logger defaults to slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds e and type-asserts it into every applicable hook cache.
// Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(Admitted); ok {
		r.admitted = append(r.admitted, admittedEntry{name, h})
	}
	if h, ok := e.(Queued); ok {
		r.queued = append(r.queued, queuedEntry{name, h})
	}
	if h, ok := e.(Rejected); ok {
		r.rejected = append(r.rejected, rejectedEntry{name, h})
	}
	if h, ok := e.(Cancelled); ok {
		r.cancelled = append(r.cancelled, cancelledEntry{name, h})
	}
	if h, ok := e.(Released); ok {
		r.released = append(r.released, releasedEntry{name, h})
	}
}

// Extensions returns all registered extensions, in registration order.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitAdmitted notifies every extension that implements Admitted.
func (r *Registry) EmitAdmitted(ctx context.Context, queued bool, waited time.Duration) {
	for _, e := range r.admitted {
		r.guard("OnAdmitted", e.name, func() error { return e.hook.OnAdmitted(ctx, queued, waited) })
	}
}

// EmitQueued notifies every extension that implements Queued.
func (r *Registry) EmitQueued(ctx context.Context) {
	for _, e := range r.queued {
		r.guard("OnQueued", e.name, func() error { return e.hook.OnQueued(ctx) })
	}
}

// EmitRejected notifies every extension that implements Rejected.
func (r *Registry) EmitRejected(ctx context.Context, reason counters.Reason, snapshot counters.Snapshot) {
	for _, e := range r.rejected {
		r.guard("OnRejected", e.name, func() error { return e.hook.OnRejected(ctx, reason, snapshot) })
	}
}

// EmitCancelled notifies every extension that implements Cancelled.
func (r *Registry) EmitCancelled(ctx context.Context, wasQueued bool) {
	for _, e := range r.cancelled {
		r.guard("OnCancelled", e.name, func() error { return e.hook.OnCancelled(ctx, wasQueued) })
	}
}

// EmitReleased notifies every extension that implements Released.
func (r *Registry) EmitReleased(ctx context.Context, held time.Duration) {
	for _, e := range r.released {
		r.guard("OnReleased", e.name, func() error { return e.hook.OnReleased(ctx, held) })
	}
}

// guard runs fn, recovering a panic and logging either a panic or a
// returned error as a warning. Hook failures never propagate past the
// registry.
func (r *Registry) guard(hookName, extName string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("backpressure hook panicked",
				slog.String("hook", hookName),
				slog.String("extension", extName),
				slog.Any("panic", rec))
		}
	}()
	if err := fn(); err != nil {
		r.logger.Warn("backpressure hook error",
			slog.String("hook", hookName),
			slog.String("extension", extName),
			slog.String("error", err.Error()))
	}
}
