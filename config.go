package backpressure

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nulone/mcp-backpressure/counters"
	"github.com/nulone/mcp-backpressure/hooks"
)

const (
	defaultQueueTimeout = 30 * time.Second
	defaultOverloadCode = -32001
	defaultRetryAfterMS = 1000
)

// Config holds the validated, immutable settings a [Controller] was
// built with.
type Config struct {
	MaxConcurrent int
	QueueSize     int
	QueueTimeout  time.Duration
	OverloadCode  int32
	RetryAfterMS  int64
	OnOverload    func(reason counters.Reason, snapshot counters.Snapshot)
	Logger        *slog.Logger
	Hooks         *hooks.Registry
}

func defaultConfig() Config {
	return Config{
		QueueTimeout: defaultQueueTimeout,
		OverloadCode: defaultOverloadCode,
		RetryAfterMS: defaultRetryAfterMS,
		Logger:       slog.Default(),
	}
}

func (c Config) validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("mcp-backpressure: max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("mcp-backpressure: queue_size must be >= 0, got %d", c.QueueSize)
	}
	if c.QueueTimeout < 0 {
		return fmt.Errorf("mcp-backpressure: queue_timeout must be >= 0, got %v", c.QueueTimeout)
	}
	return nil
}
