package async

import "sync"

// Signal is a weak, fire-and-forget broadcast: unlike Future, it can
// be emitted more than once, and unlike Publisher, it keeps no
// history; a Subscriber that registers after an Emit simply never
// sees that value. Each Emit drains the current set of subscribers
// (each woken exactly once) and starts a fresh Chain for the next
// round instead of accumulating one.
type Signal[T any] struct {
	mu      sync.Mutex
	chain   *Chain
	pending T
	closed  bool
}

// NewSignal creates a ready-to-emit Signal.
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{chain: &Chain{}}
}

// Subscribe registers notify to run on the next Emit, or immediately
// with ErrClosed if the signal has already been Closed. The error a
// closed signal reports matches both ErrClosed and ErrAwaitCanceled
// under errors.Is. The returned Handle must be run by the caller when
// alreadyDone is true.
func (s *Signal[T]) Subscribe(notify func(T, error) Handle) (h Handle, alreadyDone bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		var zero T
		return notify(zero, ErrCanceledWith(ErrClosed)), true
	}
	chain := s.chain
	s.mu.Unlock()
	return chain.Subscribe(func() Handle {
		s.mu.Lock()
		val, err := s.pending, error(nil)
		if s.closed {
			err = ErrCanceledWith(ErrClosed)
		}
		s.mu.Unlock()
		return notify(val, err)
	})
}

// Hook atomically subscribes notify and then runs register, closing
// the register-then-subscribe race: a source that emits its first
// value from inside register (a common "replay current state to new
// listeners" pattern) cannot slip that value past a subscriber that
// was still on its way in. The returned Handle/alreadyDone pair is
// exactly Subscribe's.
func (s *Signal[T]) Hook(register func(emit func(T)), notify func(T, error) Handle) (h Handle, alreadyDone bool) {
	h, alreadyDone = s.Subscribe(notify)
	register(func(val T) { s.Emit(val).Flush() })
	return h, alreadyDone
}

// Listen registers fn as a persistent callback subscriber: it runs on
// every Emit until it returns false or the signal closes, at which
// point it is unsubscribed. The resubscription for the next round
// happens inside the wake itself, so a listener never misses an Emit
// between rounds.
func (s *Signal[T]) Listen(fn func(T) bool) {
	var resub func()
	resub = func() {
		h, already := s.Subscribe(func(val T, err error) Handle {
			if err != nil {
				return nil
			}
			return HandleFunc(func() {
				if fn(val) {
					resub()
				}
			})
		})
		if already && h != nil {
			h.Run()
		}
	}
	resub()
}

// Emit wakes every current subscriber with val, then clears the
// subscriber set so the next Emit starts fresh. Subscribers that
// register during the drain (from within another subscriber's Handle)
// join the *next* round, never the one currently draining. Emit on a
// closed signal is a no-op.
func (s *Signal[T]) Emit(val T) SuspendPoint {
	var sp SuspendPoint
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sp
	}
	s.pending = val
	old := s.chain
	s.chain = &Chain{}
	s.mu.Unlock()

	old.Drain(&sp)
	return sp
}

// Close permanently disables the signal: any Subscribe from this
// point on runs immediately with ErrClosed, and any subscriber still
// registered for the current (undrained) round is woken with
// ErrClosed as well.
func (s *Signal[T]) Close() SuspendPoint {
	var sp SuspendPoint
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sp
	}
	s.closed = true
	old := s.chain
	s.mu.Unlock()

	old.Drain(&sp)
	return sp
}
