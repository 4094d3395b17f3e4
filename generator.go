package async

import (
	"fmt"
	"sync/atomic"

	"github.com/webriots/coro"
)

// Generator is a pull-based coroutine that lazily produces a sequence
// of T values, optionally taking an Arg on every advance (for
// generators whose next value depends on something the caller
// supplies, not just internal state). It is built directly on
// github.com/webriots/coro, since a pull generator is exactly the shape
// coro.New already provides: yield hands a value out and blocks until
// the next Next call supplies the resume argument, and suspend pauses
// to pick up a fresh argument without emitting anything.
//
// A Generator is not re-entrant: at most one advance may be pending
// at a time. A second concurrent Next panics rather than corrupting
// the coroutine; a second concurrent NextAsync resolves its Future
// with that panic as an error.
type Generator[T, Arg any] struct {
	resume func(Arg) (T, bool)
	cancel func()
	busy   atomic.Bool
	done   bool
}

// NewGenerator creates a Generator whose body calls yield to produce
// each value. yield returns the Arg passed to the Next call that
// unblocks it; suspend does the same without emitting a value, for
// bodies that want to consume an argument round without producing.
// body must return (rather than loop forever) once it has nothing
// left to produce.
func NewGenerator[T, Arg any](body func(yield func(T) Arg, suspend func() Arg)) *Generator[T, Arg] {
	resume, cancel := coro.New(
		func(yield func(T) Arg, suspend func() Arg) (z T) {
			body(yield, suspend)
			return
		},
	)
	return &Generator[T, Arg]{resume: resume, cancel: cancel}
}

// Next advances the generator, supplying arg as the value its last
// yield (or suspend) call returns, and returns the next produced
// value. Once the body has returned, Next reports ErrNoMoreValues on
// every subsequent call instead of resuming a dead coroutine. A panic
// in the body exhausts the generator and comes back as the error.
func (g *Generator[T, Arg]) Next(arg Arg) (val T, err error) {
	if !g.busy.CompareAndSwap(false, true) {
		panic("async: concurrent Generator advance")
	}
	defer g.busy.Store(false)

	if g.done {
		return val, ErrNoMoreValues
	}

	defer func() {
		if r := recover(); r != nil {
			g.done = true
			var zero T
			val, err = zero, fmt.Errorf("async: generator panic: %v", r)
		}
	}()

	val, ok := g.resume(arg)
	if !ok {
		g.done = true
		var zero T
		return zero, ErrNoMoreValues
	}
	return val, nil
}

// NextAsync advances the generator on its own goroutine, returning a
// Future that resolves with the next value (or ErrNoMoreValues at
// exhaustion). The re-entrance rule still applies: the advance is
// pending until the future resolves, and starting another before then
// panics inside the spawned advance and surfaces through the future.
func (g *Generator[T, Arg]) NextAsync(arg Arg) *Future[T] {
	return NewFutureWith(func(p *Promise[T]) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					p.SetError(fmt.Errorf("async: %v", r)).Flush()
				}
			}()
			val, err := g.Next(arg)
			if err != nil {
				p.SetError(err).Flush()
				return
			}
			p.Set(val).Flush()
		}()
	})
}

// Call is the future-per-value callable form of a no-argument
// generator: each invocation returns a Future for the next value,
// resolving with ErrNoMoreValues once the body has returned.
func (g *Generator[T, Arg]) Call() *Future[T] {
	var zero Arg
	return g.NextAsync(zero)
}

// Close cancels the generator's underlying coroutine early, abandoning
// whatever work remained in its body. Calling Close more than once, or
// after the generator is already exhausted, is a no-op.
func (g *Generator[T, Arg]) Close() {
	if g.done {
		return
	}
	g.done = true
	g.cancel()
}

// Done reports whether the generator has been exhausted or closed.
func (g *Generator[T, Arg]) Done() bool {
	return g.done
}
