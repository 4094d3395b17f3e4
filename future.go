package async

import (
	"sync/atomic"
)

// result holds a resolved Future's outcome: exactly one of a value or
// an error survives to readers.
type result[T any] struct {
	val T
	err error
}

// Future is a single-shot, single-producer, multi-consumer value
// cell. It starts PENDING, transitions exactly once to READY (via the
// matching Promise's Set or SetError) and stays there. Reading a
// PENDING Future never blocks the setter: TryGet reports
// ErrValueNotReady immediately, and Subscribe/Wait register interest
// that's serviced when the Promise resolves.
type Future[T any] struct {
	chain Chain
	res   atomic.Pointer[result[T]]
}

// Promise is the write side of a Future. It is intentionally a
// distinct type from Future (rather than two methods on the same
// struct) so that a producer can hand out *Future[T] to consumers
// without also handing out the ability to resolve it.
//
// A Promise holds its Future through an atomic pointer that Claim
// swaps to nil, so "exactly one setter wins" is enforced at the
// promise rather than by racing CASes on the future's result slot:
// Set, SetError and Drop all go through Claim, and whichever of them
// gets the non-nil pointer is the single resolver.
type Promise[T any] struct {
	f atomic.Pointer[Future[T]]
}

// NewFuture creates a Future and its matching Promise. A Promise that
// will never be resolved should be Dropped so consumers observe
// ErrAwaitCanceled instead of hanging forever; the resolve-or-drop
// responsibility travels with the Promise wherever it is handed.
func NewFuture[T any]() (*Future[T], *Promise[T]) {
	f := &Future[T]{}
	p := &Promise[T]{}
	p.f.Store(f)
	return f, p
}

// NewFutureWith creates a Future and immediately hands its Promise to
// init, the return-a-future-from-a-function idiom: the initiator
// stashes the promise wherever the eventual resolution will come from
// (a timer entry, a worker queue, a callback) and the caller gets only
// the read side back.
func NewFutureWith[T any](init func(*Promise[T])) *Future[T] {
	f, p := NewFuture[T]()
	init(p)
	return f
}

// Claim detaches and returns the underlying Future exactly once;
// every later Claim (and any Set/SetError/Drop) sees nil. Claiming is
// how another resolver takes over responsibility for the future from
// this promise wholesale.
func (p *Promise[T]) Claim() *Future[T] {
	return p.f.Swap(nil)
}

// Claimed reports whether the promise has already been claimed or
// resolved.
func (p *Promise[T]) Claimed() bool {
	return p.f.Load() == nil
}

// Set resolves the future with val. It returns the SuspendPoint of
// every awaiter this resolution made runnable; the caller decides how
// to run them (Flush inline, or hand to a Loop/ThreadPool). Set is a
// no-op, returning an empty SuspendPoint, if the promise was already
// claimed.
func (p *Promise[T]) Set(val T) SuspendPoint {
	sp := p.TrySet(val)
	return sp.SuspendPoint
}

// TrySet is Set plus a report of whether this call was the one that
// resolved the future (false if the promise had already been claimed
// by a competing setter or a Drop).
func (p *Promise[T]) TrySet(val T) ValueSuspendPoint[bool] {
	return p.resolve(result[T]{val: val})
}

// SetError resolves the future with err instead of a value. A nil err
// degrades to ErrAwaitCanceled so a resolved future always carries
// either a value or a non-nil error.
func (p *Promise[T]) SetError(err error) SuspendPoint {
	if err == nil {
		err = ErrAwaitCanceled
	}
	sp := p.resolve(result[T]{err: err})
	return sp.SuspendPoint
}

// Drop abandons the promise without a value: the future resolves with
// ErrAwaitCanceled so consumers wake rather than hang. Dropping an
// already-claimed promise is a no-op, which makes Drop safe to defer
// unconditionally next to a conditional Set.
func (p *Promise[T]) Drop() SuspendPoint {
	sp := p.resolve(result[T]{err: ErrAwaitCanceled})
	return sp.SuspendPoint
}

// Bind captures val now and returns a zero-argument function that
// performs the Set (and flushes its wakeups) when invoked, for
// deferring a resolution into a ThreadPool or any other plain
// func-runner that knows nothing about promises.
func (p *Promise[T]) Bind(val T) func() {
	return func() { p.Set(val).Flush() }
}

// BindError is Bind's error counterpart.
func (p *Promise[T]) BindError(err error) func() {
	return func() { p.SetError(err).Flush() }
}

func (p *Promise[T]) resolve(r result[T]) ValueSuspendPoint[bool] {
	var sp ValueSuspendPoint[bool]
	f := p.Claim()
	if f == nil {
		return sp
	}
	f.res.Store(&r)
	f.chain.Drain(&sp.SuspendPoint)
	sp.Value = true
	return sp
}

// Done reports whether the future has already been resolved.
func (f *Future[T]) Done() bool {
	return f.res.Load() != nil
}

// TryGet returns the resolved value without blocking. It reports
// ErrValueNotReady if the future is still pending.
func (f *Future[T]) TryGet() (T, error) {
	r := f.res.Load()
	if r == nil {
		var zero T
		return zero, ErrValueNotReady
	}
	return r.val, r.err
}

// Subscribe arranges for notify to run once the future resolves,
// returning the value or error it settled with. If the future is
// already resolved, notify's resulting Handle is returned directly
// (alreadyDone is true) instead of being queued, so the caller can run
// it inline without the overhead of a round trip through a Loop.
func (f *Future[T]) Subscribe(notify func(T, error) Handle) (h Handle, alreadyDone bool) {
	return f.chain.Subscribe(func() Handle {
		r := f.res.Load()
		return notify(r.val, r.err)
	})
}

// Wait blocks the calling goroutine until the future resolves,
// draining l in the meantime so other work queued on it still runs.
// There is no stackless suspension to perform in Go, so the calling
// goroutine parks on a channel instead, while the Loop's
// resumption-ordering contract is preserved for everyone *else*
// awaiting this goroutine's own work.
func (f *Future[T]) Wait(l *Loop) (T, error) {
	if r := f.res.Load(); r != nil {
		return r.val, r.err
	}
	done := make(chan struct{})
	var r *result[T]
	h, already := f.Subscribe(func(val T, err error) Handle {
		r = &result[T]{val: val, err: err}
		return HandleFunc(func() { close(done) })
	})
	if already {
		h.Run()
	}
	for {
		select {
		case <-done:
			return r.val, r.err
		default:
		}
		if l.Pending() == 0 {
			<-done
			return r.val, r.err
		}
		l.Run()
	}
}

// Sync blocks the calling goroutine until the future resolves, without
// reading the value. Unlike Wait it drains nothing: use it from plain
// goroutines that have no Loop of their own.
func (f *Future[T]) Sync() {
	if f.Done() {
		return
	}
	done := make(chan struct{})
	h, already := f.Subscribe(func(T, error) Handle {
		return HandleFunc(func() { close(done) })
	})
	if already {
		h.Run()
		return
	}
	<-done
}

// AndThen returns a new Future that resolves with fn applied to this
// future's value once it's ready, or propagates this future's error
// unchanged. The continuation runs synchronously as part of whatever
// drains this future's chain (inline if already resolved, otherwise
// wherever the eventual Set/SetError's SuspendPoint is run).
func AndThen[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	uf, up := NewFuture[U]()
	h, already := f.Subscribe(func(val T, err error) Handle {
		return HandleFunc(func() {
			if err != nil {
				up.SetError(err).Flush()
				return
			}
			up.Set(fn(val)).Flush()
		})
	})
	if already {
		h.Run()
	}
	return uf
}
