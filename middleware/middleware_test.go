package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nulone/mcp-backpressure/middleware"
)

func TestChain_OrdersOutermostFirst(t *testing.T) {
	var order []string
	record := func(name string) middleware.Middleware {
		return func(ctx context.Context, req *middleware.Request, next middleware.Handler) error {
			order = append(order, name+":enter")
			err := next(ctx)
			order = append(order, name+":exit")
			return err
		}
	}

	chain := middleware.Chain(record("outer"), record("inner"))
	err := chain(context.Background(), &middleware.Request{Name: "op"}, func(ctx context.Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("chain() error = %v", err)
	}

	want := []string{"outer:enter", "inner:enter", "handler", "inner:exit", "outer:exit"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRecover_ConvertsPanicToError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := middleware.Recover(logger)
	err := mw(context.Background(), &middleware.Request{Name: "op"}, func(ctx context.Context) error {
		panic("boom")
	})

	if err == nil {
		t.Fatal("err = nil, want an error converted from the panic")
	}
	if buf.Len() == 0 {
		t.Error("expected the panic to be logged")
	}
}

func TestRecover_PassesThroughOnSuccess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mw := middleware.Recover(logger)

	called := false
	err := mw(context.Background(), &middleware.Request{Name: "op"}, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestTimeout_ZeroIsPassthrough(t *testing.T) {
	mw := middleware.Timeout(0)

	var gotDeadline bool
	err := mw(context.Background(), &middleware.Request{Name: "op"}, func(ctx context.Context) error {
		_, gotDeadline = ctx.Deadline()
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if gotDeadline {
		t.Error("ctx has a deadline, want none for zero timeout")
	}
}

func TestTimeout_EnforcesDeadline(t *testing.T) {
	mw := middleware.Timeout(10 * time.Millisecond)

	err := mw(context.Background(), &middleware.Request{Name: "op"}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
