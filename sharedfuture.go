package async

import "sync/atomic"

// SharedFuture is a Future usable from more than one owner. Plain
// Future already serves any number of consumers but tracks no owners;
// SharedFuture adds reference counting so that copies can be handed
// out freely and the underlying Future stays reachable, and pinned
// alive, for as long as any owner still holds a copy, without each
// owner having to coordinate who "really" owns it.
//
// Go's garbage collector already keeps a *Future[T] alive for as long
// as something references it, so SharedFuture's refcount isn't a
// memory-safety requirement; it exists for the observable semantics:
// a queryable use count, and a cleanup callback that runs when the
// final owner drops its copy.
type SharedFuture[T any] struct {
	fut     *Future[T]
	count   *atomic.Int64
	onEmpty func()
}

// NewSharedFuture wraps f as a SharedFuture with one initial owner.
// onEmpty, if non-nil, runs once when the last owner calls Release.
//
// While f is still pending, the shared future holds an extra "pin"
// reference that only the resolution itself releases: even if every
// external owner Releases early, onEmpty does not fire until the value
// actually arrives. This is the one deliberate ownership cycle in the
// package, and it is broken deterministically at resolution.
func NewSharedFuture[T any](f *Future[T], onEmpty func()) *SharedFuture[T] {
	c := &atomic.Int64{}
	c.Store(1)
	sf := &SharedFuture[T]{fut: f, count: c, onEmpty: onEmpty}
	if !f.Done() {
		pin := sf.Acquire()
		h, already := f.Subscribe(func(T, error) Handle {
			return HandleFunc(pin.Release)
		})
		if already {
			h.Run()
		}
	}
	return sf
}

// NewSharedFutureWith is the shared counterpart of NewFutureWith: it
// builds the inner future, hands its Promise to init, and wraps the
// result with the pending pin already in place.
func NewSharedFutureWith[T any](init func(*Promise[T]), onEmpty func()) *SharedFuture[T] {
	return NewSharedFuture(NewFutureWith(init), onEmpty)
}

// Acquire returns a new owning handle to the same underlying Future,
// incrementing the share count.
func (sf *SharedFuture[T]) Acquire() *SharedFuture[T] {
	sf.count.Add(1)
	return &SharedFuture[T]{fut: sf.fut, count: sf.count, onEmpty: sf.onEmpty}
}

// Release drops this handle's ownership. Once the count reaches zero,
// onEmpty runs; the underlying Future itself is left to the garbage
// collector. Calling Release more than once on the same handle is a
// caller error (the moral equivalent of a double-free) and will
// under-count.
func (sf *SharedFuture[T]) Release() {
	if sf.count.Add(-1) == 0 && sf.onEmpty != nil {
		sf.onEmpty()
	}
}

// UseCount reports the current number of live owners.
func (sf *SharedFuture[T]) UseCount() int64 {
	return sf.count.Load()
}

// Future exposes the read side so callers can Subscribe/Wait/TryGet
// without needing a direct reference-counted API.
func (sf *SharedFuture[T]) Future() *Future[T] {
	return sf.fut
}
