package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs handler start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req *Request, next Handler) error {
		logger.Info("handler started",
			slog.String("request", req.Name),
			slog.Bool("queued", req.Queued),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("handler failed",
				slog.String("request", req.Name),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("handler completed",
				slog.String("request", req.Name),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
