package async

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublisherBasicStream(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](8)
	sub := p.Subscribe(false)

	_, err := sub.TryNext()
	r.ErrorIs(err, ErrValueNotReady)

	p.Push(1).Flush()
	p.Push(2).Flush()

	v, err := sub.TryNext()
	r.NoError(err)
	r.Equal(1, v)
	v, err = sub.TryNext()
	r.NoError(err)
	r.Equal(2, v)

	_, err = sub.TryNext()
	r.ErrorIs(err, ErrValueNotReady)
}

func TestPublisherTailSubscriberSkipsBacklog(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](8)
	p.Push(1).Flush()
	p.Push(2).Flush()

	sub := p.Subscribe(false)
	_, err := sub.TryNext()
	r.ErrorIs(err, ErrValueNotReady)

	p.Push(3).Flush()
	v, err := sub.TryNext()
	r.NoError(err)
	r.Equal(3, v)
}

func TestPublisherSubscribeFromOldest(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](8)
	p.Push(1).Flush()
	p.Push(2).Flush()

	sub := p.SubscribeFromOldest(false)
	v, err := sub.TryNext()
	r.NoError(err)
	r.Equal(1, v)
	v, err = sub.TryNext()
	r.NoError(err)
	r.Equal(2, v)
}

func TestPublisherLagPolicies(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](2)
	strict := p.SubscribeFromOldest(false)
	skipper := p.SubscribeFromOldest(true)

	for i := 1; i <= 5; i++ {
		p.Push(i).Flush()
	}
	// Ring holds [4, 5]; both subscribers wanted 1.

	_, err := strict.TryNext()
	r.ErrorIs(err, ErrLost)
	v, err := strict.TryNext()
	r.NoError(err)
	r.Equal(4, v)

	// Skip-to-latest jumps silently.
	v, err = skipper.TryNext()
	r.NoError(err)
	r.Equal(4, v)
	v, err = skipper.TryNext()
	r.NoError(err)
	r.Equal(5, v)
}

func TestPublisherClose(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](4)
	sub := p.SubscribeFromOldest(false)
	p.Push(1).Flush()
	p.Close().Flush()

	// Retained backlog still delivers before exhaustion.
	v, err := sub.TryNext()
	r.NoError(err)
	r.Equal(1, v)

	_, err = sub.TryNext()
	r.ErrorIs(err, ErrClosed)

	// Push after close is dropped.
	p.Push(2).Flush()
	_, err = sub.TryNext()
	r.ErrorIs(err, ErrClosed)
}

func TestSubscriberSubscribeWakeup(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](4)
	sub := p.Subscribe(false)

	var got int
	var gotErr error
	h, done := sub.Subscribe(func(v int, err error) Handle {
		return HandleFunc(func() { got, gotErr = v, err })
	})
	r.Nil(h)
	r.False(done)

	p.Push(42).Flush()
	r.NoError(gotErr)
	r.Equal(42, got)
}

func TestSubscriberWaitAcrossGoroutines(t *testing.T) {
	r := require.New(t)

	p := NewPublisher[int](4)
	sub := p.Subscribe(false)

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Push(9).Flush()
	}()

	v, err := sub.Wait(NewLoop())
	r.NoError(err)
	r.Equal(9, v)

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Close().Flush()
	}()
	_, err = sub.Wait(NewLoop())
	r.ErrorIs(err, ErrClosed)
}
