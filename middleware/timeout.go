package middleware

import (
	"context"
	"time"
)

// Timeout returns middleware that enforces a fixed execution deadline
// on every handler call. If d is zero, Timeout is a pass-through: the
// admission controller's own queue_timeout already bounds how long a
// caller waits to be admitted, so a zero handler timeout is a
// legitimate choice when only admission-side bounding is wanted.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, req *Request, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
