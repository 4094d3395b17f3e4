package async

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedFuturePinWhilePending(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	emptied := false
	sf := NewSharedFuture(fut, func() { emptied = true })

	// One external owner plus the pending pin.
	r.Equal(int64(2), sf.UseCount())

	// Dropping the only external owner before resolution must not
	// fire onEmpty: the pin keeps the block alive until the value
	// arrives.
	sf.Release()
	r.False(emptied)
	r.Equal(int64(1), sf.UseCount())

	prom.Set(1).Flush()
	r.True(emptied)
	r.Equal(int64(0), sf.UseCount())
}

func TestSharedFutureResolvedFirst(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	emptied := false
	sf := NewSharedFuture(fut, func() { emptied = true })

	prom.Set(5).Flush()
	// Pin released at resolution; only the external owner remains.
	r.Equal(int64(1), sf.UseCount())
	r.False(emptied)

	sf.Release()
	r.True(emptied)
}

func TestSharedFutureAlreadyDone(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	prom.Set(3).Flush()

	sf := NewSharedFuture(fut, nil)
	// No pin needed for an already-resolved future.
	r.Equal(int64(1), sf.UseCount())

	v, err := sf.Future().TryGet()
	r.NoError(err)
	r.Equal(3, v)
}

func TestSharedFutureAcquireRelease(t *testing.T) {
	r := require.New(t)

	emptied := 0
	sf := NewSharedFutureWith(func(p *Promise[int]) {
		p.Set(1).Flush()
	}, func() { emptied++ })

	a := sf.Acquire()
	b := sf.Acquire()
	r.Equal(int64(3), sf.UseCount())

	a.Release()
	b.Release()
	r.Equal(0, emptied)

	sf.Release()
	r.Equal(1, emptied)
}

func TestSharedFutureManyReaders(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	sf := NewSharedFuture(fut, nil)

	const n = 4
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		h := sf.Acquire()
		go func() {
			defer h.Release()
			v, err := h.Future().Wait(NewLoop())
			if err != nil {
				done <- -1
				return
			}
			done <- v
		}()
	}

	prom.Set(99).Flush()
	for i := 0; i < n; i++ {
		r.Equal(99, <-done)
	}
}
