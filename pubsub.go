package async

import (
	"sync"

	"github.com/gammazero/deque"
)

// Publisher is a many-consumer broadcast channel with bounded history:
// unlike Signal it retains up to capacity recent values so a
// Subscriber created after a few values have already gone out can
// still catch up, and unlike Future it's reusable for an unbounded
// stream of pushes. Subscribers that fall behind the retained history
// either observe the gap as ErrLost or silently skip to the oldest
// retained value, depending on how they were created.
type Publisher[T any] struct {
	mu       sync.Mutex
	buf      *deque.Deque[T]
	capacity int
	base     uint64 // sequence number of buf[0]
	next     uint64 // sequence number of the next pushed value
	closed   bool
	waiters  *Chain
}

// NewPublisher creates a Publisher retaining up to capacity values.
// capacity must be at least 1.
func NewPublisher[T any](capacity int) *Publisher[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Publisher[T]{
		buf:      new(deque.Deque[T]),
		capacity: capacity,
		waiters:  &Chain{},
	}
}

// Push appends val, evicting the oldest retained value once capacity
// is exceeded, and wakes any subscriber waiting for a value that is
// now available.
func (p *Publisher[T]) Push(val T) SuspendPoint {
	var sp SuspendPoint
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return sp
	}
	if p.buf.Len() == p.capacity {
		p.buf.PopFront()
		p.base++
	}
	p.buf.PushBack(val)
	p.next++
	waiters := p.waiters
	p.waiters = &Chain{}
	p.mu.Unlock()

	waiters.Drain(&sp)
	return sp
}

// Close permanently stops the publisher: pending and future
// subscribers are woken/notified with ErrClosed once the retained
// backlog (if any) has been delivered.
func (p *Publisher[T]) Close() SuspendPoint {
	var sp SuspendPoint
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return sp
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = &Chain{}
	p.mu.Unlock()

	waiters.Drain(&sp)
	return sp
}

// Subscriber reads sequentially from a Publisher starting at the
// sequence number current at the time of Subscribe. Each Subscriber
// has an independent cursor; Publisher itself holds no per-subscriber
// state beyond the shared ring buffer.
type Subscriber[T any] struct {
	pub  *Publisher[T]
	cur  uint64
	skip bool
}

// Subscribe creates a Subscriber positioned at the publisher's current
// tail: it will next read whatever is Pushed after this call, and
// any already-retained backlog is skipped. Use SubscribeFromOldest to
// start from the oldest value still retained instead.
//
// skipToLatest selects the lag policy for a Subscriber that falls
// behind the retained history: true means the cursor silently jumps
// forward to the oldest retained value, false means the gap is
// reported once as ErrLost before reads resume from the oldest
// retained value.
func (p *Publisher[T]) Subscribe(skipToLatest bool) *Subscriber[T] {
	p.mu.Lock()
	cur := p.next
	p.mu.Unlock()
	return &Subscriber[T]{pub: p, cur: cur, skip: skipToLatest}
}

// SubscribeFromOldest creates a Subscriber positioned at the oldest
// value still retained in the publisher's history, if any.
func (p *Publisher[T]) SubscribeFromOldest(skipToLatest bool) *Subscriber[T] {
	p.mu.Lock()
	cur := p.base
	p.mu.Unlock()
	return &Subscriber[T]{pub: p, cur: cur, skip: skipToLatest}
}

// TryNext returns the next value in sequence without blocking. It
// reports ErrValueNotReady if no new value has arrived yet,
// ErrClosed once the publisher is closed and the backlog exhausted,
// and ErrLost (only when not in skip-to-latest mode) the first time
// the cursor catches up after evicted values were missed.
func (s *Subscriber[T]) TryNext() (T, error) {
	s.pub.mu.Lock()
	defer s.pub.mu.Unlock()
	return s.tryNextLocked()
}

func (s *Subscriber[T]) tryNextLocked() (T, error) {
	p := s.pub
	var zero T
	if s.cur < p.base {
		lost := p.base - s.cur
		s.cur = p.base
		if !s.skip && lost > 0 {
			return zero, ErrLost
		}
	}
	if s.cur < p.next {
		val := p.buf.At(int(s.cur - p.base))
		s.cur++
		return val, nil
	}
	if p.closed {
		return zero, ErrClosed
	}
	return zero, ErrValueNotReady
}

// Subscribe arranges for notify to run once a value is available (or
// the publisher closes), without blocking.
func (s *Subscriber[T]) Subscribe(notify func(T, error) Handle) (h Handle, alreadyDone bool) {
	s.pub.mu.Lock()
	val, err := s.tryNextLocked()
	if err != ErrValueNotReady {
		s.pub.mu.Unlock()
		return notify(val, err), true
	}
	waiters := s.pub.waiters
	s.pub.mu.Unlock()
	return waiters.Subscribe(func() Handle {
		v, e := s.TryNext()
		return notify(v, e)
	})
}

// Wait blocks the calling goroutine until a value is available,
// draining l to keep other work moving in the meantime. A wake that
// races with another state change and finds nothing to read loops and
// re-subscribes rather than returning a spurious not-ready.
func (s *Subscriber[T]) Wait(l *Loop) (T, error) {
	for {
		done := make(chan struct{})
		var val T
		var err error
		h, already := s.Subscribe(func(v T, e error) Handle {
			val, err = v, e
			return HandleFunc(func() { close(done) })
		})
		if already {
			h.Run()
		} else {
			waitDone(l, done)
		}
		if err != ErrValueNotReady {
			return val, err
		}
	}
}
