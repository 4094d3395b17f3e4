package async

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/gammazero/deque"
)

// ThreadPool is a fixed set of worker goroutines that run Handles
// pulled off a shared queue, for moving a suspended task's resumption
// off whatever goroutine woke it and onto a bounded worker set.
// Where Loop drains handles on the calling goroutine,
// ThreadPool.Dispatch hands them to whichever worker goroutine picks
// them up next.
type ThreadPool struct {
	mu   sync.Mutex
	cond *sync.Cond
	q    deque.Deque[Handle]
	stop *StopSource
	wg   sync.WaitGroup
}

// NewThreadPool starts a ThreadPool with the given number of worker
// goroutines. A non-positive count means "match the machine":
// runtime.GOMAXPROCS(0) workers.
func NewThreadPool(workers int) *ThreadPool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	tp := &ThreadPool{stop: NewStopSource()}
	tp.cond = sync.NewCond(&tp.mu)
	tp.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go tp.worker()
	}
	return tp
}

func (tp *ThreadPool) worker() {
	defer tp.wg.Done()
	for {
		tp.mu.Lock()
		for tp.q.Len() == 0 && !tp.stop.Token().Stopped() {
			tp.cond.Wait()
		}
		if tp.q.Len() == 0 {
			tp.mu.Unlock()
			return
		}
		h := tp.q.PopFront()
		tp.mu.Unlock()
		h.Run()
	}
}

// Submit queues h to run on the next available worker goroutine.
// Submitting after Stop is a no-op; the handle is silently dropped
// rather than queued for a worker that will never come back.
func (tp *ThreadPool) Submit(h Handle) {
	if h == nil {
		return
	}
	tp.mu.Lock()
	if tp.stop.Token().Stopped() {
		tp.mu.Unlock()
		return
	}
	tp.q.PushBack(h)
	tp.mu.Unlock()
	tp.cond.Signal()
}

// Dispatch submits every handle remaining in sp to the pool, in
// order, without running any of them on the calling goroutine.
func (tp *ThreadPool) Dispatch(sp *SuspendPoint) {
	for {
		h, ok := sp.Pop()
		if !ok {
			return
		}
		tp.Submit(h)
	}
}

// RunDetached queues fn to run on a worker, fire-and-forget: no
// future, no result, panics recovered and discarded so one bad job
// cannot take a worker down.
func (tp *ThreadPool) RunDetached(fn func()) {
	tp.Submit(HandleFunc(func() {
		defer func() { _ = recover() }()
		fn()
	}))
}

// Run executes fn on a pool worker and returns a Future for its
// result. A panic in fn resolves the future with an error rather than
// crashing the worker.
func Run[T any](tp *ThreadPool, fn func() (T, error)) *Future[T] {
	return NewFutureWith(func(p *Promise[T]) {
		tp.Submit(HandleFunc(func() {
			defer func() {
				if r := recover(); r != nil {
					p.SetError(fmt.Errorf("async: pool task panic: %v", r)).Flush()
				}
			}()
			val, err := fn()
			if err != nil {
				p.SetError(err).Flush()
				return
			}
			p.Set(val).Flush()
		}))
	})
}

// Wrap returns a Future mirroring f whose own awaiters are always
// resumed on a pool worker, never on whatever goroutine happened to
// resolve f. Use it to pin a continuation's execution to the pool when
// the resolver might be a latency-sensitive thread (a timer goroutine,
// a network poller) that should not run user code inline.
func Wrap[T any](tp *ThreadPool, f *Future[T]) *Future[T] {
	return NewFutureWith(func(p *Promise[T]) {
		h, already := f.Subscribe(func(val T, err error) Handle {
			return HandleFunc(func() {
				tp.Submit(HandleFunc(func() {
					if err != nil {
						p.SetError(err).Flush()
						return
					}
					p.Set(val).Flush()
				}))
			})
		})
		if already {
			h.Run()
		}
	})
}

// Stop signals every worker to exit once the queue drains, then blocks
// until all of them have. Submit calls made after Stop returns are
// dropped rather than queued.
func (tp *ThreadPool) Stop() {
	tp.stop.Stop()
	tp.mu.Lock()
	tp.cond.Broadcast()
	tp.mu.Unlock()
	tp.wg.Wait()
}

// Pending reports how many handles are queued but not yet picked up
// by a worker.
func (tp *ThreadPool) Pending() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.q.Len()
}
