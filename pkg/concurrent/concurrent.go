package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every element of in on at most workers goroutines and
// returns the results in input order. The first error cancels the context
// passed to the remaining calls and is returned. workers <= 0 means GOMAXPROCS.
func Map[T any, R any](ctx context.Context, in []T, workers int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]R, len(in))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, val := range in {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := fn(gctx, val)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForEach runs action for every element of in on at most workers goroutines
// and returns the first error encountered.
func ForEach[T any](ctx context.Context, in []T, workers int, action func(context.Context, T) error) error {
	_, err := Map(ctx, in, workers, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, action(ctx, v)
	})
	return err
}
