package async

import "sync"

// WaitGroup waits for a collection of goroutines to finish. Callers
// Add(1) when starting work and Done() when it completes; Wait blocks
// (cooperatively, draining a Loop) until the counter returns to zero.
//
// It is built directly on Signal[struct{}]: reaching zero emits once,
// every current waiter wakes, and a fresh Signal is installed for the
// next cycle so the WaitGroup remains reusable the way sync.WaitGroup
// is.
type WaitGroup struct {
	noCopy noCopy
	mu     sync.Mutex
	n      int
	done   *Signal[struct{}]
}

// NewWaitGroup creates a ready-to-use WaitGroup.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{done: NewSignal[struct{}]()}
}

// Add adds delta to the counter. If it drops to zero, every goroutine
// currently blocked in Wait is released. Add panics if the counter
// goes negative.
func (wg *WaitGroup) Add(delta int) SuspendPoint {
	wg.mu.Lock()
	wg.n += delta
	if wg.n < 0 {
		wg.mu.Unlock()
		panic("async: negative WaitGroup counter")
	}
	if wg.n > 0 {
		wg.mu.Unlock()
		return SuspendPoint{}
	}
	sig := wg.done
	wg.done = NewSignal[struct{}]()
	wg.mu.Unlock()
	return sig.Emit(struct{}{})
}

// Done decrements the counter by one; equivalent to Add(-1).
func (wg *WaitGroup) Done() SuspendPoint {
	return wg.Add(-1)
}

// Wait blocks the calling goroutine until the counter is zero,
// draining l in the meantime so other ready work still runs. The
// subscription happens under the counter lock: either the waiter is
// in the signal round the final Done will drain, or it observes zero
// and returns; an Emit cannot slip through between the check and the
// subscribe.
func (wg *WaitGroup) Wait(l *Loop) {
	for {
		wg.mu.Lock()
		if wg.n == 0 {
			wg.mu.Unlock()
			return
		}
		done := make(chan struct{})
		h, already := wg.done.Subscribe(func(struct{}, error) Handle {
			return HandleFunc(func() { close(done) })
		})
		wg.mu.Unlock()

		if already {
			h.Run()
			continue
		}
		waitDone(l, done)
	}
}

// waitDone blocks until done closes, draining l whenever it has
// queued work instead of idling.
func waitDone(l *Loop, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		if l.Pending() == 0 {
			<-done
			return
		}
		l.Run()
	}
}
