// Package retry provides a client-side helper for retrying a call after
// an admission controller rejects it with an overload error.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	backpressure "github.com/nulone/mcp-backpressure"
)

// fallbackCap bounds the delay computed when an overload result carries
// no advisory retry_after_ms.
const fallbackCap = 30 * time.Second

// Do calls fn up to maxAttempts times in all, retrying whenever fn fails
// with a *backpressure.OverloadError. Do returns the first non-overload error
// verbatim, without retrying — only overload is treated as transient
// here. A caller whose ctx is cancelled mid-wait gets ctx.Err().
func Do[T any](ctx context.Context, maxAttempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var overload *backpressure.OverloadError
		if !errors.As(err, &overload) {
			return zero, err
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(backoffFor(overload, attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// backoffFor computes how long to wait before retrying after overload.
// It trusts the controller's own advisory over a client-chosen curve:
// retry_after_ms when the controller set one, since that reflects its
// current state more directly than anything the client could guess.
//
// When no advisory is present, the delay is scaled off the controller's
// own queue_timeout_ms rather than an arbitrary client constant — a
// controller configured with a long queue timeout is one whose waiters
// sit for a while before a slot frees up, so a client backing off from
// it should wait proportionally longer between attempts. Full jitter
// avoids every backed-off caller retrying in lockstep the instant the
// controller starts draining its queue.
func backoffFor(overload *backpressure.OverloadError, attempt int) time.Duration {
	if overload.RetryAfterMS > 0 {
		return time.Duration(overload.RetryAfterMS) * time.Millisecond
	}

	base := time.Duration(overload.QueueTimeoutMS) * time.Millisecond
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	scaled := base * time.Duration(attempt)
	if scaled > fallbackCap {
		scaled = fallbackCap
	}
	return time.Duration(rand.Float64() * float64(scaled)) //nolint:gosec // jitter intentionally uses non-crypto rand
}
