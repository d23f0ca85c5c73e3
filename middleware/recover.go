package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace,
// so a misbehaving handler cannot take down the caller that admitted it.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req *Request, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("handler panicked",
					slog.String("request", req.Name),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in %s: %v", req.Name, r)
			}
		}()
		return next(ctx)
	}
}
