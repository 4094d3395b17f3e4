package async

import "errors"

// Expected failures surfaced to consumers as ordinary error values.
var (
	// ErrValueNotReady is returned by a non-blocking read of a Future
	// that is still PENDING.
	ErrValueNotReady = errors.New("async: value not ready")

	// ErrAwaitCanceled is returned when a Future resolves with no
	// value: a dropped Promise, a canceled scheduled sleep, or a
	// collector-less Signal emitter.
	ErrAwaitCanceled = errors.New("async: await canceled")

	// ErrNoMoreValues is returned by advancing an exhausted Generator.
	ErrNoMoreValues = errors.New("async: no more values")

	// ErrClosed is returned by reads against a closed Publisher or a
	// released Signal control block.
	ErrClosed = errors.New("async: closed")

	// ErrLost is returned to a Subscriber in block-on-lag mode whose
	// cursor has fallen behind the Publisher's retained history.
	ErrLost = errors.New("async: subscriber lagged and lost values")
)

// canceledWith wraps a caller-supplied exception passed to
// Scheduler.Cancel, so that errors.Is(err, ErrAwaitCanceled) still
// reports true for it (it is, after all, a cancellation) while
// errors.Is and errors.As still match the original cause. Its Unwrap
// returns both errors as a slice, so errors.Unwrap reports nil for it.
type canceledWith struct {
	cause error
}

func (e *canceledWith) Error() string   { return e.cause.Error() }
func (e *canceledWith) Unwrap() []error { return []error{ErrAwaitCanceled, e.cause} }

// ErrCanceledWith wraps err so that it satisfies errors.Is against
// both ErrAwaitCanceled and err itself. A nil err is equivalent to
// ErrAwaitCanceled.
func ErrCanceledWith(err error) error {
	if err == nil {
		return ErrAwaitCanceled
	}
	return &canceledWith{cause: err}
}
