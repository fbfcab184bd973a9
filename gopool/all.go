package gopool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// AllWithLimit runs fns with at most max running at once and returns the
// first error. A max below 1 means no limit. A panic in one fn is returned
// as that fn's error.
func AllWithLimit(max int, fns ...func() (e error)) (e error) {
	return AllContext(context.Background(), max, func(ctx context.Context, i int) error {
		return fns[i]()
	}, len(fns))
}

func All(fns ...func() (e error)) (e error) {
	return AllWithLimit(-1, fns...)
}

// AllContext calls fn(ctx, i) for every i in [0, n). ctx is cancelled as soon
// as one call fails, so the remaining calls can stop early.
func AllContext(ctx context.Context, max int, fn func(ctx context.Context, i int) error, n int) (e error) {
	g, ctx := errgroup.WithContext(ctx)
	if max < 1 {
		max = -1
	}
	g.SetLimit(max)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() (e error) {
			defer func() {
				if r := recover(); r != nil {
					e = fmt.Errorf("gopool: task %d panicked: %v", i, r)
				}
			}()
			if e = ctx.Err(); e != nil {
				return
			}
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
