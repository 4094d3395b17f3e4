package async

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fibGenerator() *Generator[int, struct{}] {
	return NewGenerator[int, struct{}](func(yield func(int) struct{}, _ func() struct{}) {
		a, b := 1, 2
		for i := 0; i < 10; i++ {
			yield(a)
			a, b = b, a+b
		}
	})
}

func TestGeneratorFibonacci(t *testing.T) {
	r := require.New(t)

	g := fibGenerator()
	want := []int{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}
	for _, w := range want {
		v, err := g.Next(struct{}{})
		r.NoError(err)
		r.Equal(w, v)
	}

	// The 11th advance reports exhaustion, and so does every one
	// after it.
	_, err := g.Next(struct{}{})
	r.ErrorIs(err, ErrNoMoreValues)
	_, err = g.Next(struct{}{})
	r.ErrorIs(err, ErrNoMoreValues)
	r.True(g.Done())
}

func TestGeneratorTwoWay(t *testing.T) {
	r := require.New(t)

	// Running sum: each yield emits the total so far and receives the
	// next increment from the caller.
	g := NewGenerator[int, int](func(yield func(int) int, _ func() int) {
		sum := 0
		for i := 0; i < 4; i++ {
			sum += yield(sum)
		}
	})

	v, err := g.Next(0)
	r.NoError(err)
	r.Equal(0, v)

	v, err = g.Next(5)
	r.NoError(err)
	r.Equal(5, v)

	v, err = g.Next(3)
	r.NoError(err)
	r.Equal(8, v)

	v, err = g.Next(2)
	r.NoError(err)
	r.Equal(10, v)

	_, err = g.Next(0)
	r.ErrorIs(err, ErrNoMoreValues)
}

func TestGeneratorPanicBecomesError(t *testing.T) {
	r := require.New(t)

	g := NewGenerator[int, struct{}](func(yield func(int) struct{}, _ func() struct{}) {
		yield(1)
		panic("bad step")
	})

	v, err := g.Next(struct{}{})
	r.NoError(err)
	r.Equal(1, v)

	_, err = g.Next(struct{}{})
	r.Error(err)
	r.Contains(err.Error(), "bad step")

	_, err = g.Next(struct{}{})
	r.ErrorIs(err, ErrNoMoreValues)
}

func TestGeneratorClose(t *testing.T) {
	r := require.New(t)

	g := NewGenerator[int, struct{}](func(yield func(int) struct{}, _ func() struct{}) {
		for i := 0; ; i++ {
			yield(i)
		}
	})

	v, err := g.Next(struct{}{})
	r.NoError(err)
	r.Equal(0, v)

	g.Close()
	g.Close() // idempotent
	r.True(g.Done())

	_, err = g.Next(struct{}{})
	r.ErrorIs(err, ErrNoMoreValues)
}

func TestGeneratorNextAsync(t *testing.T) {
	r := require.New(t)

	g := fibGenerator()
	l := NewLoop()

	v, err := g.NextAsync(struct{}{}).Wait(l)
	r.NoError(err)
	r.Equal(1, v)

	v, err = g.Call().Wait(l)
	r.NoError(err)
	r.Equal(2, v)

	// Drain the rest, then confirm exhaustion arrives as a future
	// error too.
	for i := 0; i < 8; i++ {
		_, err = g.Call().Wait(l)
		r.NoError(err)
	}
	_, err = g.Call().Wait(l)
	r.ErrorIs(err, ErrNoMoreValues)
}
