package capslot_test

import (
	"sync"
	"testing"

	"github.com/nulone/mcp-backpressure/capslot"
)

func TestSlot_TryAcquireExhaustsCapacity(t *testing.T) {
	s := capslot.New(2)

	tok1, ok1 := s.TryAcquire()
	if !ok1 || tok1 == nil {
		t.Fatalf("TryAcquire() #1 = (%v, %v), want a token and true", tok1, ok1)
	}
	tok2, ok2 := s.TryAcquire()
	if !ok2 || tok2 == nil {
		t.Fatalf("TryAcquire() #2 = (%v, %v), want a token and true", tok2, ok2)
	}
	if _, ok3 := s.TryAcquire(); ok3 {
		t.Fatal("TryAcquire() #3 succeeded, want false once capacity is exhausted")
	}
}

func TestSlot_ReleaseFreesUnit(t *testing.T) {
	s := capslot.New(1)

	tok, ok := s.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire() = false, want true")
	}
	if _, ok := s.TryAcquire(); ok {
		t.Fatal("TryAcquire() succeeded while the only unit was held")
	}

	s.Release(tok)

	if _, ok := s.TryAcquire(); !ok {
		t.Fatal("TryAcquire() failed after release, want true")
	}
}

func TestSlot_ReleaseIsIdempotent(t *testing.T) {
	s := capslot.New(1)

	tok, _ := s.TryAcquire()
	s.Release(tok)
	s.Release(tok) // must be a no-op, not a double-free

	if got := s.Available(); got != 1 {
		t.Fatalf("Available() = %d, want 1 (double release must not over-free)", got)
	}
}

func TestSlot_NilReleaseIsNoop(t *testing.T) {
	s := capslot.New(1)
	s.Release(nil)

	if got := s.Available(); got != 1 {
		t.Fatalf("Available() = %d, want 1", got)
	}
}

func TestSlot_HandoffTakesPriorityOverFreePool(t *testing.T) {
	s := capslot.New(1)
	tok, _ := s.TryAcquire()

	var offered *capslot.Token
	s.SetHandoffFunc(func(next *capslot.Token) bool {
		offered = next
		return true
	})

	s.Release(tok)

	if offered == nil {
		t.Fatal("handoff function was not invoked")
	}
	if got := s.Available(); got != 0 {
		t.Fatalf("Available() = %d, want 0 (unit should have been handed off, not freed)", got)
	}
}

func TestSlot_DeclinedHandoffFreesUnit(t *testing.T) {
	s := capslot.New(1)
	tok, _ := s.TryAcquire()

	s.SetHandoffFunc(func(*capslot.Token) bool { return false })
	s.Release(tok)

	if got := s.Available(); got != 1 {
		t.Fatalf("Available() = %d, want 1 (declined handoff must fall back to free pool)", got)
	}
}

func TestSlot_ConcurrentAcquireNeverExceedsCapacity(t *testing.T) {
	const capacity = 8
	s := capslot.New(capacity)

	var mu sync.Mutex
	held := 0
	peak := 0

	var wg sync.WaitGroup
	for i := 0; i < capacity*20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, ok := s.TryAcquire()
			if !ok {
				return
			}
			mu.Lock()
			held++
			if held > peak {
				peak = held
			}
			mu.Unlock()

			mu.Lock()
			held--
			mu.Unlock()
			s.Release(tok)
		}()
	}
	wg.Wait()

	if peak > capacity {
		t.Fatalf("peak concurrent holders = %d, want <= %d", peak, capacity)
	}
	if got := s.Available(); got != capacity {
		t.Fatalf("Available() = %d, want %d after quiescence", got, capacity)
	}
}
