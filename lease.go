package backpressure

import "sync"

// Lease represents one admitted unit of capacity. A caller that
// receives a Lease from [Controller.Admit] owns the capacity unit until
// it calls [Lease.Release]; until then the unit counts toward
// max_concurrent and will not be handed to anyone else.
//
// Release is safe to call more than once, and safe to call from a
// deferred statement regardless of which control-flow path leaves the
// handler — exactly one of its calls has any effect.
type Lease struct {
	once    sync.Once
	release func()
}

// Release returns the leased capacity unit. Only the first call has any
// effect.
func (l *Lease) Release() {
	l.once.Do(l.release)
}
