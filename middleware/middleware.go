// Package middleware provides composable middleware for the handler a
// caller runs once admitted by a Controller. Middleware wraps handler
// calls synchronously and can modify execution — recovering from
// panics, enforcing a deadline, logging, tracing, and recording
// metrics — without the handler itself knowing any of that happened.
package middleware

import "context"

// Request describes the admitted call a middleware chain is wrapping.
// It carries just enough identity for logging and instrumentation; the
// handler itself still receives only a context.
type Request struct {
	// Name identifies the operation being invoked, e.g. a tool name.
	Name string
	// Queued reports whether this request waited in the admission
	// queue before being admitted.
	Queued bool
}

// Handler is the terminal function a middleware chain wraps.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the request being executed, and the next handler to
// call. A Middleware must call next to continue the chain, unless it is
// deliberately short-circuiting.
type Middleware func(ctx context.Context, req *Request, next Handler) error

// Chain composes multiple middleware into a single Middleware, applied
// right-to-left: the first middleware in the list is the outermost
// wrapper.
//
// Example: Chain(Logging(l), Recover(l)) executes as Logging → Recover → handler.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, req *Request, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, req, prev)
			}
		}
		return h(ctx)
	}
}
