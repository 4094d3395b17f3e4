package async

import "runtime"

// SuspendPoint collects the Handles a single operation made runnable
// (resolving a Future can wake any number of awaiters at once) without
// forcing a heap allocation for the overwhelmingly common case of zero
// or one: a small backing array absorbs the common case, and append's
// own growth takes over once it doesn't fit.
type SuspendPoint struct {
	buf [3]Handle
	s   []Handle
}

// push records h as a handle this operation made runnable. It does not
// run h; the caller decides when and where (inline via Flush, handed
// off to a Loop, or dispatched to a ThreadPool).
func (sp *SuspendPoint) push(h Handle) {
	if h == nil {
		return
	}
	if sp.s == nil {
		sp.s = sp.buf[:0]
	}
	sp.s = append(sp.s, h)
}

// Empty reports whether no handle was made runnable.
func (sp *SuspendPoint) Empty() bool {
	return len(sp.s) == 0
}

// Len reports how many handles are queued.
func (sp *SuspendPoint) Len() int {
	return len(sp.s)
}

// Pop removes and returns the next queued handle, in the order it was
// pushed (earliest first). ok is false once the point is empty.
func (sp *SuspendPoint) Pop() (h Handle, ok bool) {
	if len(sp.s) == 0 {
		return nil, false
	}
	h, sp.s = sp.s[0], sp.s[1:]
	return h, true
}

// Flush runs every queued handle, in order, directly on the calling
// goroutine. This is the "run it right here" option; prefer
// Loop.Adopt when the caller wants the rest of the runtime's
// re-entrancy guarantees (a setter returning to its own caller before
// any awaiter runs).
func (sp *SuspendPoint) Flush() {
	for {
		h, ok := sp.Pop()
		if !ok {
			return
		}
		h.Run()
	}
}

// Await runs every handle queued in sp, then runs self last, directly
// on the calling goroutine. It models the "symmetric transfer to the
// thing I'm about to block on" idiom: a task that just unblocked other
// waiters and is now about to continue its own work wants the others
// serviced first. self must not also be queued in sp.
//
// Await is a convenience for that one narrow pattern; general
// resumption ordering should go through a Loop instead.
func (sp *SuspendPoint) Await(self Handle) {
	sp.Flush()
	if self != nil {
		self.Run()
	}
}

// ValueSuspendPoint couples a SuspendPoint with a result produced by
// the same operation, for setters that need to report an outcome along
// with the wakeups it caused. Promise.TrySet's "did I win the race to
// resolve" boolean rides back to the caller this way without a second
// return value at every call site that only wants the handles.
type ValueSuspendPoint[T any] struct {
	SuspendPoint
	Value T
}

// FlushValue flushes the queued handles and returns the attached
// value, the consume-both-halves convenience for call sites that want
// the result after the wakeups have run.
func (sp *ValueSuspendPoint[T]) FlushValue() T {
	sp.Flush()
	return sp.Value
}

// LeakGuard installs a finalizer that flushes any handles still queued
// when sp becomes unreachable, so a dropped SuspendPoint never
// silently forgets to resume an awaiter. Callers that build a
// SuspendPoint on the stack and always Flush/Adopt it before
// returning don't need this; it exists for longer-lived points (e.g.
// one embedded in a struct) where "drop without resuming" would
// otherwise be a silent hang rather than a caught bug. sp must be
// heap-allocated and not consumed by value after the call.
func (sp *SuspendPoint) LeakGuard() {
	runtime.SetFinalizer(sp, func(sp *SuspendPoint) {
		sp.Flush()
	})
}
