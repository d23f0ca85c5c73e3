// Package backpressure provides an admission controller for bounding
// concurrent in-flight work in front of a request-handler pipeline —
// typically tool invocations in a JSON-RPC/MCP server.
//
// It decides, for every incoming request, whether to run it immediately,
// park it in a bounded FIFO queue for a bounded time, or reject it with a
// structured overload payload. It is the sole authority over three shared
// resources: a counting capacity pool, a bounded wait queue, and a set of
// diagnostic counters. Every acquisition of those resources is paired with
// a guard that releases it on every exit path, including cancellation of
// the calling context — no permit is ever leaked.
//
// # Quick Start
//
//	ctrl, err := backpressure.New(
//	    backpressure.WithMaxConcurrent(32),
//	    backpressure.WithQueueSize(64),
//	    backpressure.WithQueueTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = ctrl.Run(ctx, func(ctx context.Context) error {
//	    return handleToolCall(ctx, req)
//	})
//	var overload *backpressure.OverloadError
//	if errors.As(err, &overload) {
//	    // respond with overload.JSONRPC()
//	}
//
// # Architecture
//
// Three leaf packages implement the resources the controller orchestrates:
// [github.com/nulone/mcp-backpressure/counters] holds atomic tallies,
// [github.com/nulone/mcp-backpressure/capslot] is the counting capacity
// resource, and [github.com/nulone/mcp-backpressure/waitqueue] is the
// bounded FIFO parking area with cancellation-safe handoff. The root
// package wires them together behind the admission protocol described in
// [Controller.Admit].
//
// Supporting packages ([github.com/nulone/mcp-backpressure/hooks],
// [github.com/nulone/mcp-backpressure/middleware],
// [github.com/nulone/mcp-backpressure/retry],
// [github.com/nulone/mcp-backpressure/metrics/prometheus]) are optional:
// nothing in the core admission path depends on them.
package backpressure
