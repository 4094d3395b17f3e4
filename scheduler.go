package async

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// StopSource and StopToken implement a three-state shutdown handshake
// ("running" -> "stop requested" -> channel closed) shared by
// Scheduler and ThreadPool: pollable (Stopped), selectable (Done),
// plus callback registration (OnStop) for components that react to
// shutdown rather than loop on it.
type StopSource struct {
	state atomic.Int32
	done  chan struct{}
	mu    sync.Mutex
	cbs   []func()
}

// NewStopSource creates a StopSource in the running state.
func NewStopSource() *StopSource {
	return &StopSource{done: make(chan struct{})}
}

// Stop requests shutdown, closing every token's Done channel and
// running every registered callback. Calling Stop more than once is a
// no-op.
func (s *StopSource) Stop() {
	if !s.state.CompareAndSwap(0, 1) {
		return
	}
	close(s.done)
	s.mu.Lock()
	cbs := s.cbs
	s.cbs = nil
	s.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// Token returns a StopToken observing this source.
func (s *StopSource) Token() StopToken {
	return StopToken{src: s}
}

// StopToken is the read-only half of a StopSource.
type StopToken struct {
	src *StopSource
}

// Done returns a channel closed once Stop has been called. A zero
// StopToken's Done channel is nil and never closes.
func (t StopToken) Done() <-chan struct{} {
	if t.src == nil {
		return nil
	}
	return t.src.done
}

// Stopped reports whether Stop has already been called.
func (t StopToken) Stopped() bool {
	return t.src != nil && t.src.state.Load() != 0
}

// OnStop registers cb to run when Stop is called, or immediately if it
// already has been. A zero StopToken never stops, so cb never runs.
func (t StopToken) OnStop(cb func()) {
	if t.src == nil {
		return
	}
	t.src.mu.Lock()
	if t.src.state.Load() == 0 {
		t.src.cbs = append(t.src.cbs, cb)
		t.src.mu.Unlock()
		return
	}
	t.src.mu.Unlock()
	cb()
}

// schedEntry is one pending timer, ordered by deadline with insertion
// order as the tiebreaker so entries sharing a deadline fire FIFO.
type schedEntry struct {
	deadline time.Time
	seq      uint64
	index    int
	id       any
	prom     *Promise[struct{}]
}

type schedHeap []*schedEntry

func (h schedHeap) Len() int { return len(h) }
func (h schedHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h schedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *schedHeap) Push(x any) {
	e := x.(*schedEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *schedHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler resolves promises at a future deadline using a single
// background goroutine, parked on the nearest deadline of a
// deadline-ordered min-heap. Shutdown follows the same
// StopToken/StopSource shape as ThreadPool.
//
// Entries carry an optional caller-supplied identifier so a pending
// timer can be cancelled without holding any handle the Scheduler
// returned; ids are compared with ==, so any comparable value works
// and nil means "not cancellable by id".
type Scheduler struct {
	mu   sync.Mutex
	h    schedHeap
	seq  uint64
	wake chan struct{}
	stop *StopSource
	pool *ThreadPool
}

// NewScheduler starts a Scheduler's background timer goroutine.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		stop: NewStopSource(),
	}
	go s.run()
	return s
}

// NewPoolScheduler starts a Scheduler whose expirations are dispatched
// to tp instead of resolved on the timer goroutine, so awaiters woken
// by a timer resume on a pool worker. The timer goroutine itself is
// still dedicated; only the resolutions move.
func NewPoolScheduler(tp *ThreadPool) *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		stop: NewStopSource(),
		pool: tp,
	}
	go s.run()
	return s
}

// Schedule registers prom to resolve at deadline t under the given id.
// The promise is claimed by the scheduler: resolving it elsewhere
// first makes the expiration a no-op.
func (s *Scheduler) Schedule(id any, prom *Promise[struct{}], t time.Time) {
	s.mu.Lock()
	s.seq++
	e := &schedEntry{deadline: t, seq: s.seq, id: id, prom: prom}
	heap.Push(&s.h, e)
	s.mu.Unlock()
	s.nudge()
}

// SleepUntil returns a Future that resolves once the clock reaches t.
// A deadline already in the past still goes through the timer
// goroutine and fires on its next wake, rather than resolving
// synchronously. id may be used to Cancel the sleep; nil makes it
// uncancellable.
func (s *Scheduler) SleepUntil(t time.Time, id any) *Future[struct{}] {
	return NewFutureWith(func(p *Promise[struct{}]) {
		s.Schedule(id, p, t)
	})
}

// SleepFor is SleepUntil relative to now.
func (s *Scheduler) SleepFor(d time.Duration, id any) *Future[struct{}] {
	return s.SleepUntil(time.Now().Add(d), id)
}

// Cancel removes one pending entry whose id matches (the
// earliest-scheduled one if several share the id), resolving its
// Future with ErrCanceledWith(err) instead of firing it. It reports
// false if no pending entry has that id: it already fired, was
// already cancelled, or never existed.
func (s *Scheduler) Cancel(id any, err error) bool {
	if id == nil {
		return false
	}
	s.mu.Lock()
	var found *schedEntry
	for _, e := range s.h {
		if e.id == id && (found == nil || e.seq < found.seq) {
			found = e
		}
	}
	if found == nil {
		s.mu.Unlock()
		return false
	}
	heap.Remove(&s.h, found.index)
	s.mu.Unlock()
	s.resolve(found.prom.BindError(ErrCanceledWith(err)))
	return true
}

// Stop halts the background goroutine and resolves every still-pending
// timer with ErrAwaitCanceled.
func (s *Scheduler) Stop() {
	s.stop.Stop()
}

// Pending reports how many timers are scheduled but not yet fired.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Len()
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// resolve runs a bound resolution either inline (dedicated scheduler)
// or on the attached pool's workers.
func (s *Scheduler) resolve(fire func()) {
	if s.pool != nil {
		s.pool.Submit(HandleFunc(fire))
		return
	}
	fire()
}

func (s *Scheduler) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var wait time.Duration
		if s.h.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.h[0].deadline)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.stop.Token().Done():
			s.drainAll()
			return
		case <-timer.C:
			s.fireDue()
		case <-s.wake:
		}
	}
}

func (s *Scheduler) fireDue() {
	now := time.Now()
	var due []*schedEntry
	s.mu.Lock()
	for s.h.Len() > 0 && !s.h[0].deadline.After(now) {
		due = append(due, heap.Pop(&s.h).(*schedEntry))
	}
	s.mu.Unlock()
	for _, e := range due {
		s.resolve(e.prom.Bind(struct{}{}))
	}
}

func (s *Scheduler) drainAll() {
	s.mu.Lock()
	due := s.h
	s.h = nil
	s.mu.Unlock()
	for _, e := range due {
		s.resolve(e.prom.BindError(ErrAwaitCanceled))
	}
}

// Tick returns a Generator that yields tick ordinals 0, 1, 2, ... once
// every interval, with drift correction: each deadline is the previous
// target plus interval, not "now plus interval", so a slow consumer
// does not push every later tick further out. The generator stops on
// Close, or when the Scheduler is stopped (the pending sleep resolves
// with ErrAwaitCanceled and the body returns).
func (s *Scheduler) Tick(l *Loop, interval time.Duration) *Generator[int, struct{}] {
	return NewGenerator[int, struct{}](func(yield func(int) struct{}, _ func() struct{}) {
		target := time.Now().Add(interval)
		for n := 0; ; n++ {
			fut := s.SleepUntil(target, nil)
			if _, err := fut.Wait(l); err != nil {
				return
			}
			yield(n)
			target = target.Add(interval)
		}
	})
}
