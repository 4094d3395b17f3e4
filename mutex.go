package async

import (
	"sync"

	"github.com/gammazero/deque"
)

// Token represents ownership of a Mutex. Unlock releases it. Passing
// a Token around (instead of calling a bare Mutex.Unlock) makes "who
// currently owns the lock" visible in a function signature, and
// hands the release responsibility to whoever holds it.
type Token struct {
	m *Mutex
}

// Unlock releases the mutex this token owns. If another goroutine is
// waiting, ownership transfers directly to it (its pending Lock
// future resolves with a fresh Token for the same Mutex) rather than
// the lock becoming briefly available for anyone to grab. The waiter
// queue is guarded by an ordinary sync.Mutex because Lock and Unlock
// can race across real OS threads; FIFO grant order falls out of the
// queue being globally FIFO.
func (t *Token) Unlock() SuspendPoint {
	return t.m.unlock()
}

// Mutex provides asynchronous mutual exclusion. Unlike sync.Mutex,
// Lock never blocks the calling goroutine: it returns a Future[*Token]
// that resolves immediately if the mutex was free, or once it becomes
// this caller's turn.
type Mutex struct {
	noCopy  noCopy
	mu      sync.Mutex
	locked  bool
	waiters deque.Deque[*Promise[*Token]]
}

// Lock requests ownership of the mutex, returning a Future that
// resolves with a Token once this caller holds it.
func (m *Mutex) Lock() *Future[*Token] {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		fut, prom := NewFuture[*Token]()
		prom.Set(&Token{m: m}).Flush()
		return fut
	}
	fut, prom := NewFuture[*Token]()
	m.waiters.PushBack(prom)
	m.mu.Unlock()
	return fut
}

// TryLock acquires the mutex without blocking or queuing, reporting
// false if it was already held.
func (m *Mutex) TryLock() (*Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil, false
	}
	m.locked = true
	return &Token{m: m}, true
}

func (m *Mutex) unlock() SuspendPoint {
	var sp SuspendPoint
	m.mu.Lock()
	if m.waiters.Len() == 0 {
		m.locked = false
		m.mu.Unlock()
		return sp
	}
	next := m.waiters.PopFront()
	m.mu.Unlock()
	return next.Set(&Token{m: m})
}

// WaitCount returns the number of goroutines currently queued for the
// mutex.
func (m *Mutex) WaitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters.Len()
}
