package backpressure

import (
	"fmt"

	"github.com/nulone/mcp-backpressure/counters"
)

// OverloadError is the structured rejection payload returned when an
// admission attempt is denied. Its shape is bit-stable: field names and
// the JSON-RPC-style envelope returned by [OverloadError.JSONRPC]
// must not change across versions.
type OverloadError struct {
	Code     int32
	Reason   counters.Reason
	Snapshot counters.Snapshot

	MaxConcurrent  int
	QueueSize      int
	QueueTimeoutMS int64
	RetryAfterMS   int64
}

// Error implements the error interface.
func (e *OverloadError) Error() string {
	return fmt.Sprintf("mcp-backpressure: overloaded (reason=%s active=%d queued=%d)",
		e.Reason, e.Snapshot.Active, e.Snapshot.Queued)
}

// JSONRPC renders the error as the JSON-RPC-shaped map described by the
// overload result payload contract: a top-level code and message, with
// the diagnostic breakdown nested under data.
func (e *OverloadError) JSONRPC() map[string]any {
	return map[string]any{
		"code":    e.Code,
		"message": "SERVER_OVERLOADED",
		"data": map[string]any{
			"reason":           string(e.Reason),
			"active":           e.Snapshot.Active,
			"queued":           e.Snapshot.Queued,
			"max_concurrent":   e.MaxConcurrent,
			"queue_size":       e.QueueSize,
			"queue_timeout_ms": e.QueueTimeoutMS,
			"retry_after_ms":   e.RetryAfterMS,
		},
	}
}

// ErrCancelled is returned from [Controller.Admit] when the caller's
// context is cancelled before admission completes, whether while
// arriving, while parked in the wait queue, or in the narrow window
// between a handoff and the caller observing it. It carries no overload
// payload — a cancelled caller is not an overload.
var ErrCancelled = fmt.Errorf("mcp-backpressure: admission cancelled")
