package async

import "sync/atomic"

// Handle is a runnable continuation: a task that was suspended awaiting
// a value and is now ready to proceed. Run must be safe to invoke from
// whatever goroutine eventually drains the SuspendPoint it ends up in.
type Handle interface {
	Run()
}

// HandleFunc adapts a plain function to Handle.
type HandleFunc func()

// Run implements Handle.
func (f HandleFunc) Run() { f() }

// awaiter is one link in a Chain: a subscriber plus the intrusive
// pointer used to push/pop it onto the chain's LIFO stack with a
// single CAS. atomic.Pointer rather than unsafe.Pointer, so the race
// detector understands the access.
type awaiter struct {
	next   atomic.Pointer[awaiter]
	notify func() Handle
}

// chainDone is a sentinel stored in Chain.head once the chain has been
// drained, so that any subsequent Subscribe can tell immediately that
// it missed the resolution and must run its continuation inline
// instead of queuing it.
var chainDone = &awaiter{}

// Chain is a lock-free, single-resolution LIFO stack of awaiters. It
// is the shared substrate under Future, Signal, and Publisher: anyone
// who needs "let N consumers register interest, then wake all of them
// exactly once, in a way that's cheap when nobody is listening yet"
// builds it on a Chain.
//
// A Chain is used once: Subscribe before the first Drain, Drain
// exactly once. Subscribing after Drain runs notify immediately and
// reports alreadyDone instead of queuing, which is how callers
// distinguish "already resolved" from "still pending" without a
// separate flag.
type Chain struct {
	head atomic.Pointer[awaiter]
}

// Subscribe registers notify to run when the chain is drained. If the
// chain has already been drained, notify's Handle is returned
// immediately and alreadyDone is true; the caller must run it (or hand it to a
// SuspendPoint) itself rather than assume queuing happened.
func (c *Chain) Subscribe(notify func() Handle) (h Handle, alreadyDone bool) {
	a := &awaiter{notify: notify}
	for {
		old := c.head.Load()
		if old == chainDone {
			return notify(), true
		}
		a.next.Store(old)
		if c.head.CompareAndSwap(old, a) {
			return nil, false
		}
	}
}

// Drain marks the chain resolved and pushes every queued awaiter's
// Handle onto sp, LIFO order reversed back to the order Subscribe was
// called in (first subscriber resumes first). Draining an
// already-drained chain is a no-op that adds nothing to sp; Drain is not
// safe to call concurrently with another Drain on the same Chain
// (a Future/Signal/Publisher only ever drains once, or serializes
// repeated drains through its own state machine).
func (c *Chain) Drain(sp *SuspendPoint) {
	old := c.head.Swap(chainDone)
	if old == nil || old == chainDone {
		return
	}
	// old is a LIFO stack (most recent subscriber first); reverse it
	// so earlier subscribers are resumed first, matching FIFO wakeup
	// order elsewhere in the runtime.
	var rev *awaiter
	for n := old; n != nil; {
		next := n.next.Load()
		n.next.Store(rev)
		rev = n
		n = next
	}
	for n := rev; n != nil; n = n.next.Load() {
		if h := n.notify(); h != nil {
			sp.push(h)
		}
	}
}

// Resolved reports whether the chain has already been drained.
func (c *Chain) Resolved() bool {
	return c.head.Load() == chainDone
}
