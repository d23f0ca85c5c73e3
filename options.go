package backpressure

import (
	"log/slog"
	"time"

	"github.com/nulone/mcp-backpressure/counters"
	"github.com/nulone/mcp-backpressure/hooks"
)

// Option configures a [Controller] at construction time. Options are
// applied in order and may fail validation only as a group, in [New].
type Option func(*Config)

// WithMaxConcurrent sets the maximum number of requests the controller
// admits to run concurrently. Required: there is no usable default.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) { c.MaxConcurrent = n }
}

// WithQueueSize sets how many callers may be parked waiting for
// capacity at once. The default, 0, disables queueing entirely: every
// rejection while the fast path is unavailable is a concurrency_limit
// rejection.
func WithQueueSize(n int) Option {
	return func(c *Config) { c.QueueSize = n }
}

// WithQueueTimeout sets how long a parked caller waits for capacity
// before being rejected with queue_timeout. Ignored when the queue is
// disabled. Defaults to 30s.
func WithQueueTimeout(d time.Duration) Option {
	return func(c *Config) { c.QueueTimeout = d }
}

// WithOverloadCode sets the code field carried by every [OverloadError].
// It is opaque to the controller; it exists so callers can match their
// host RPC error-code space. Defaults to -32001.
func WithOverloadCode(code int32) Option {
	return func(c *Config) { c.OverloadCode = code }
}

// WithRetryAfter sets the advisory retry_after_ms carried by every
// [OverloadError]. It is a constant, not adapted to current load — see
// the package's design notes on why that tradeoff was made. Defaults to
// 1000ms.
func WithRetryAfter(d time.Duration) Option {
	return func(c *Config) { c.RetryAfterMS = d.Milliseconds() }
}

// WithOnOverload installs an observer invoked synchronously on every
// rejection, after the rejection counters have been updated. The
// observer is exception-isolated: a panic inside it is recovered and
// logged, never propagated to the caller of [Controller.Admit].
func WithOnOverload(fn func(reason counters.Reason, snapshot counters.Snapshot)) Option {
	return func(c *Config) { c.OnOverload = fn }
}

// WithHooks installs a lifecycle hook registry. Unlike WithOnOverload,
// which covers only rejections, a hook registry can react to every
// stage of admission — queued, admitted, released, cancelled. Nil is
// the default: no registry, no hook dispatch overhead.
func WithHooks(r *hooks.Registry) Option {
	return func(c *Config) { c.Hooks = r }
}

// WithLogger sets the logger the controller uses for its own
// diagnostics, such as a recovered observer panic. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
