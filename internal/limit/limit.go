// Package limit runs a list of tasks with bounded concurrency and returns
// their results in input order, whatever order they finish in.
package limit

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the number of tasks in flight when no limit is given.
const DefaultLimit = 10

// Task produces one result. The context is cancelled once another task of the
// same Run has failed.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the value-or-error outcome of one task in RunSettled.
type Result[T any] struct {
	Value T
	Err   error
}

// Run executes tasks with at most limit of them running at once.
//
// The returned slice has one entry per task, at the task's index. The first
// task error aborts the run: tasks not yet started are skipped, running
// tasks see a cancelled context, and that error is returned with a nil slice.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) ([]T, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(normalize(limit))

	results := make([]T, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := task(ctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunSettled executes every task with at most limit running at once and
// captures each outcome separately. A failing task does not affect the others.
func RunSettled[T any](ctx context.Context, limit int, tasks []Task[T]) []Result[T] {
	var g errgroup.Group
	g.SetLimit(normalize(limit))

	results := make([]Result[T], len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			v, err := task(ctx)
			results[i] = Result[T]{Value: v, Err: err}
			return nil
		})
	}

	g.Wait()
	return results
}

func normalize(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
