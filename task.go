package async

import (
	"context"
	"fmt"
	"runtime/trace"
	"strings"
	"sync/atomic"
)

const (
	taskTraceTaskType = "async-task"
	taskTraceCategory = "async"
)

// AsyncTask is a goroutine-backed coroutine whose completion resolves
// an associated Future[T]. Where Generator models a coroutine that
// hands control back and forth with its caller, AsyncTask models one
// that simply runs to completion on its own goroutine: Go goroutines
// are already stackful coroutines with their own growable stack, so
// there's no symmetric-transfer trick to perform here; fn just runs,
// and Future.Wait is how a caller "awaits" it.
//
// AsyncTasks form a tree: a task's Go method spawns children tracked against the
// parent so PendingChildren can report how many are still outstanding, mostly
// useful for tests and diagnostics rather than control flow (nothing
// blocks on a child living or dying, since the parent's own fn simply
// returns whenever it returns).
type AsyncTask[T any] struct {
	ctx    context.Context
	fut    *Future[T]
	prom   *Promise[T]
	parent *AsyncTask[T]
	childn atomic.Int32
}

// Go runs fn on a new goroutine, returning a Future that resolves with
// fn's result (or the error it returns). Panics inside fn are
// recovered and turned into the future's error, matching the rest of
// the package's "errors are data, not crashes" stance.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (*AsyncTask[T], *Future[T]) {
	fut, prom := NewFuture[T]()
	return gospawn[T](ctx, nil, fut, prom, fn)
}

// GoInto starts fn against a caller-supplied Promise instead of a
// fresh one. It claims prom first; on a lost claim (someone else
// already resolved or dropped it) nothing is started and GoInto
// reports false. On success the task's completion resolves the
// promise's original Future.
func GoInto[T any](ctx context.Context, prom *Promise[T], fn func(ctx context.Context) (T, error)) (*AsyncTask[T], bool) {
	fut := prom.Claim()
	if fut == nil {
		return nil, false
	}
	owned := &Promise[T]{}
	owned.f.Store(fut)
	task, _ := gospawn[T](ctx, nil, fut, owned, fn)
	return task, true
}

// GoDetached starts fn with nowhere to report its result: panics are
// swallowed after being recovered (there is no future to carry them)
// and the return value is discarded. Fire-and-forget.
func GoDetached(ctx context.Context, fn func(ctx context.Context)) {
	Go(ctx, func(ctx context.Context) (struct{}, error) {
		fn(ctx)
		return struct{}{}, nil
	})
}

// Go spawns a child task from an existing one, tracked against the
// parent's outstanding-child count.
func (t *AsyncTask[T]) Go(fn func(ctx context.Context) (T, error)) (*AsyncTask[T], *Future[T]) {
	t.childn.Add(1)
	fut, prom := NewFuture[T]()
	task, f := gospawn[T](t.ctx, t, fut, prom, fn)
	return task, f
}

func gospawn[T any](ctx context.Context, parent *AsyncTask[T], fut *Future[T], prom *Promise[T], fn func(ctx context.Context) (T, error)) (*AsyncTask[T], *Future[T]) {
	task := &AsyncTask[T]{fut: fut, prom: prom, parent: parent}
	tctx, tracer := trace.NewTask(ctx, taskTraceTaskType)
	task.ctx = withTaskContext(tctx, task)

	go func() {
		defer tracer.End()
		defer func() {
			if r := recover(); r != nil {
				task.prom.SetError(fmt.Errorf("async: task panic: %v", r)).Flush()
			}
			if task.parent != nil {
				task.parent.childn.Add(-1)
			}
		}()

		val, err := fn(task.ctx)
		if err != nil {
			task.prom.SetError(err).Flush()
			return
		}
		task.prom.Set(val).Flush()
	}()

	return task, fut
}

// Wait blocks until the task completes, draining l for other ready
// work in the meantime, and returns its result.
func (t *AsyncTask[T]) Wait(l *Loop) (T, error) {
	return t.fut.Wait(l)
}

// Done reports whether the task has finished.
func (t *AsyncTask[T]) Done() bool {
	return t.fut.Done()
}

// Future exposes the task's result as a plain Future, for composing
// with AndThen or handing to a Publisher/Signal consumer.
func (t *AsyncTask[T]) Future() *Future[T] {
	return t.fut
}

// PendingChildren reports how many child tasks spawned via Go have not
// yet completed.
func (t *AsyncTask[T]) PendingChildren() int {
	return int(t.childn.Load())
}

func (t *AsyncTask[T]) Log(msg string) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		sb.WriteString(msg)
		trace.Log(t.ctx, taskTraceCategory, sb.String())
	}
}

func (t *AsyncTask[T]) Logf(format string, args ...any) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		fmt.Fprintf(&sb, format, args...)
		trace.Log(t.ctx, taskTraceCategory, sb.String())
	}
}

func taskpath[T any](sb *strings.Builder, t *AsyncTask[T]) {
	if t == nil {
		return
	}
	taskpath(sb, t.parent)
	fmt.Fprintf(sb, "%p|", t)
}
