package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFutureSetAndGet(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	r.False(fut.Done())

	_, err := fut.TryGet()
	r.ErrorIs(err, ErrValueNotReady)

	prom.Set(42).Flush()
	r.True(fut.Done())

	v, err := fut.TryGet()
	r.NoError(err)
	r.Equal(42, v)
}

func TestFutureSetError(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	fut, prom := NewFuture[int]()
	prom.SetError(boom).Flush()

	_, err := fut.TryGet()
	r.ErrorIs(err, boom)
}

func TestPromiseClaimTwice(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	f := prom.Claim()
	r.NotNil(f)
	r.Same(fut, f)
	r.Nil(prom.Claim())
	r.True(prom.Claimed())
}

func TestPromiseTrySetWinner(t *testing.T) {
	r := require.New(t)

	_, prom := NewFuture[int]()
	first := prom.TrySet(1)
	r.True(first.FlushValue())

	second := prom.TrySet(2)
	r.False(second.FlushValue())
}

func TestPromiseDrop(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	prom.Drop().Flush()

	_, err := fut.TryGet()
	r.ErrorIs(err, ErrAwaitCanceled)

	// Drop after Set is a no-op.
	fut2, prom2 := NewFuture[int]()
	prom2.Set(9).Flush()
	prom2.Drop().Flush()
	v, err := fut2.TryGet()
	r.NoError(err)
	r.Equal(9, v)
}

func TestPromiseBind(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[string]()
	fire := prom.Bind("deferred")
	_, err := fut.TryGet()
	r.ErrorIs(err, ErrValueNotReady)

	fire()
	v, err := fut.TryGet()
	r.NoError(err)
	r.Equal("deferred", v)
}

func TestFutureSubscribeBeforeSet(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()

	var got []int
	for i := 0; i < 2; i++ {
		h, done := fut.Subscribe(func(v int, err error) Handle {
			return HandleFunc(func() { got = append(got, v) })
		})
		r.Nil(h)
		r.False(done)
	}

	sp := prom.Set(7)
	r.Equal(2, sp.Len())
	sp.Flush()
	r.Equal([]int{7, 7}, got)
}

func TestFutureSubscribeAfterSet(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	prom.Set(3).Flush()

	got := 0
	h, done := fut.Subscribe(func(v int, err error) Handle {
		return HandleFunc(func() { got = v })
	})
	r.True(done)
	h.Run()
	r.Equal(3, got)
}

func TestFutureWaitCrossGoroutine(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		prom.Set(11).Flush()
	}()

	v, err := fut.Wait(NewLoop())
	r.NoError(err)
	r.Equal(11, v)
}

func TestFutureSync(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		prom.Set(1).Flush()
	}()
	fut.Sync()
	r.True(fut.Done())

	// Already-resolved future: returns immediately.
	fut.Sync()
}

func TestNewFutureWith(t *testing.T) {
	r := require.New(t)

	fut := NewFutureWith(func(p *Promise[int]) {
		p.Set(5).Flush()
	})
	v, err := fut.TryGet()
	r.NoError(err)
	r.Equal(5, v)
}

func TestAndThen(t *testing.T) {
	r := require.New(t)

	fut, prom := NewFuture[int]()
	doubled := AndThen(fut, func(v int) int { return v * 2 })
	prom.Set(21).Flush()

	v, err := doubled.TryGet()
	r.NoError(err)
	r.Equal(42, v)

	boom := errors.New("boom")
	ef, ep := NewFuture[int]()
	mapped := AndThen(ef, func(v int) int { return v })
	ep.SetError(boom).Flush()
	_, err = mapped.TryGet()
	r.ErrorIs(err, boom)
}

// A task awaits a future resolved elsewhere, then produces its own
// value; the task's future carries it with no error.
func TestFuturePromiseVoid(t *testing.T) {
	r := require.New(t)

	gate, gateProm := NewFuture[struct{}]()
	_, fut := Go(context.Background(), func(ctx context.Context) (int, error) {
		if _, err := gate.Wait(NewLoop()); err != nil {
			return 0, err
		}
		return 42, nil
	})

	gateProm.Set(struct{}{}).Flush()

	v, err := fut.Wait(NewLoop())
	r.NoError(err)
	r.Equal(42, v)
}

func TestErrCanceledWith(t *testing.T) {
	r := require.New(t)

	cause := errors.New("deadline moved")
	err := ErrCanceledWith(cause)
	r.ErrorIs(err, ErrAwaitCanceled)
	r.ErrorIs(err, cause)
	r.Equal(cause.Error(), err.Error())

	r.ErrorIs(ErrCanceledWith(nil), ErrAwaitCanceled)
}
