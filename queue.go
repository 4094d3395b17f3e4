package async

import (
	"sync"

	"github.com/gammazero/deque"
)

// Loop is a per-goroutine resumption queue. A setter (Promise.Set,
// Signal.Emit, a Publisher push) that wakes several awaiters returns
// their Handles in a SuspendPoint without running any of them; handing
// that SuspendPoint to a Loop (EnqueueAll or Adopt) queues them on the
// Loop's current scope. The queue is drained only once control
// re-enters the Loop via Adopt or Run.
//
// A Loop supports re-entrant installation: calling Adopt while already
// draining pushes a new scope, so the nested drain runs to completion
// before the outer drain resumes where it left off.
type Loop struct {
	mu     sync.Mutex
	scopes []*deque.Deque[Handle]
}

var defaultLoop = NewLoop()

// NewLoop creates a standalone Loop with one base scope installed.
func NewLoop() *Loop {
	l := &Loop{}
	l.scopes = append(l.scopes, new(deque.Deque[Handle]))
	return l
}

// DefaultLoop returns a package-wide Loop for code that does not
// construct its own. No operation in this package uses it implicitly:
// Future.Wait and the other blocking waits take their Loop as an
// argument.
func DefaultLoop() *Loop { return defaultLoop }

func (l *Loop) top() *deque.Deque[Handle] {
	return l.scopes[len(l.scopes)-1]
}

// Enqueue schedules h to run the next time this Loop's current scope
// drains. It never runs h synchronously, even if the Loop is currently
// idle; the caller must eventually call Run or Adopt to drain it.
func (l *Loop) Enqueue(h Handle) {
	if h == nil {
		return
	}
	l.mu.Lock()
	l.top().PushBack(h)
	l.mu.Unlock()
}

// EnqueueAll pushes every handle remaining in sp onto the Loop, in
// order, without running any of them.
func (l *Loop) EnqueueAll(sp *SuspendPoint) {
	for {
		h, ok := sp.Pop()
		if !ok {
			return
		}
		l.Enqueue(h)
	}
}

// Run drains every handle queued in the Loop's current scope,
// including ones enqueued by handles that ran earlier in the same
// drain, until the scope goes empty. It does not install a new scope,
// so nested Adopt calls made from within a running Handle still stack
// correctly on top of it.
func (l *Loop) Run() {
	for {
		l.mu.Lock()
		scope := l.top()
		if scope.Len() == 0 {
			l.mu.Unlock()
			return
		}
		h := scope.PopFront()
		l.mu.Unlock()
		h.Run()
	}
}

// Adopt installs a fresh nested scope, enqueues sp's handles into it,
// drains that scope to completion, then pops the scope back off. Any
// handle enqueued into an *outer* scope while the nested scope is
// draining waits for the nested drain to finish: the innermost
// activation always runs to exhaustion before an outer one resumes.
func (l *Loop) Adopt(sp *SuspendPoint) {
	l.mu.Lock()
	l.scopes = append(l.scopes, new(deque.Deque[Handle]))
	l.mu.Unlock()

	l.EnqueueAll(sp)
	l.Run()

	l.mu.Lock()
	l.scopes = l.scopes[:len(l.scopes)-1]
	l.mu.Unlock()
}

// Swap offers h to the Loop in exchange for whichever handle has been
// waiting the longest: if the current scope is non-empty, h is pushed
// at the back and the front handle is returned; if the scope is empty
// the exchange is a no-op and h comes straight back. This is the
// cooperative-yield primitive: a long-running handle calls Swap with
// its own continuation to let everything queued ahead of it run first,
// producing round-robin interleaving across repeated yields.
func (l *Loop) Swap(h Handle) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	scope := l.top()
	if scope.Len() == 0 {
		return h
	}
	scope.PushBack(h)
	return scope.PopFront()
}

// NextReady pops the front handle of the current scope without running
// it, reporting false if the scope is empty.
func (l *Loop) NextReady() (Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	scope := l.top()
	if scope.Len() == 0 {
		return nil, false
	}
	return scope.PopFront(), true
}

// Pending reports how many handles are queued in the current scope,
// chiefly useful for tests asserting a setter didn't resume anyone
// inline.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.top().Len()
}
