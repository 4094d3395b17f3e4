package async

import "sync"

// SingleFlight deduplicates concurrent calls that share a key: the
// first caller for a key actually runs fn, and every other caller
// that arrives before it finishes gets the same result without
// running fn again.
//
// The in-flight call's result is a SharedFuture[any]: arriving late
// just means Acquire-ing a handle to the same future and waiting on
// it, which composes with the rest of the package's Future-based
// machinery instead of needing its own bespoke wakeup path.
type SingleFlight struct {
	mu    sync.Mutex
	calls map[any]*SharedFuture[any]
}

// NewSingleFlight creates an empty SingleFlight.
func NewSingleFlight() *SingleFlight {
	return &SingleFlight{calls: make(map[any]*SharedFuture[any])}
}

// Do runs fn for key, or waits for an already-running call for the
// same key to finish and reuses its result. shared reports whether
// the result came from a call this goroutine didn't itself trigger.
func (g *SingleFlight) Do(l *Loop, key any, fn func() (any, error)) (v any, err error, shared bool) {
	g.mu.Lock()
	if sf, ok := g.calls[key]; ok {
		sf = sf.Acquire()
		g.mu.Unlock()
		v, err = sf.Future().Wait(l)
		sf.Release()
		return v, err, true
	}

	fut, prom := NewFuture[any]()
	sf := NewSharedFuture[any](fut, nil)
	g.calls[key] = sf
	g.mu.Unlock()

	v, err = fn()

	g.mu.Lock()
	if g.calls[key] == sf {
		delete(g.calls, key)
	}
	g.mu.Unlock()

	if err != nil {
		prom.SetError(err).Flush()
	} else {
		prom.Set(v).Flush()
	}
	return v, err, false
}
