package async

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunGroupAllSucceed(t *testing.T) {
	r := require.New(t)

	g, _ := NewRunGroup(context.Background())
	results := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		g.Go(func(ctx context.Context) error {
			results <- i
			return nil
		})
	}
	r.NoError(g.Wait(NewLoop()))
	r.Len(results, 3)
}

func TestRunGroupFirstErrorCancels(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	g, ctx := NewRunGroup(context.Background())

	canceled := make(chan struct{})
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	})
	g.Go(func(ctx context.Context) error {
		return boom
	})

	err := g.Wait(NewLoop())
	r.ErrorIs(err, boom)
	r.ErrorIs(context.Cause(ctx), boom)
	<-canceled
}

func TestRunGroupWaitCancelsCleanly(t *testing.T) {
	r := require.New(t)

	g, ctx := NewRunGroup(context.Background())
	g.Go(func(ctx context.Context) error { return nil })
	r.NoError(g.Wait(NewLoop()))

	// A clean Wait still releases the derived context.
	select {
	case <-ctx.Done():
	default:
		t.Fatal("group context not released after Wait")
	}
	r.ErrorIs(context.Cause(ctx), context.Canceled)
}
