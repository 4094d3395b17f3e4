package async

import (
	"context"
	"sync"
)

// RunGroup runs a collection of goroutines against a shared context
// and collects the first error any of them returns, cancelling the
// context for the rest the moment one fails. It's the asynchronous
// counterpart to golang.org/x/sync/errgroup, rebuilt on this
// package's own AsyncTask and WaitGroup rather than bare goroutines +
// sync.WaitGroup. Each member runs as an AsyncTask whose Future the
// group subscribes to internally; Go does not return that Future, so
// callers observe members only through Wait's error.
type RunGroup struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     *WaitGroup
	mu     sync.Mutex
	err    error
}

// NewRunGroup returns a RunGroup and a context derived from ctx that
// is canceled (with the first member error as its cause) as soon as
// any Go'd function fails.
func NewRunGroup(ctx context.Context) (*RunGroup, context.Context) {
	cctx, cancel := context.WithCancelCause(ctx)
	return &RunGroup{ctx: cctx, cancel: cancel, wg: NewWaitGroup()}, cctx
}

// Go runs fn on a new AsyncTask against the group's context. If fn
// returns a non-nil error and no other member has already failed, the
// group's context is canceled with that error as its cause.
func (g *RunGroup) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1).Flush()
	_, fut := Go(g.ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	h, already := fut.Subscribe(func(_ struct{}, err error) Handle {
		return HandleFunc(func() {
			if err != nil {
				g.mu.Lock()
				if g.err == nil {
					g.err = err
					g.cancel(err)
				}
				g.mu.Unlock()
			}
			g.wg.Done().Flush()
		})
	})
	if already {
		h.Run()
	}
}

// Wait blocks, draining l, until every Go'd function has returned, then
// returns the first error encountered (nil if none did).
func (g *RunGroup) Wait(l *Loop) error {
	g.wg.Wait(l)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err == nil {
		g.cancel(nil)
	}
	return g.err
}
