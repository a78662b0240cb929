// Package pool runs a batch of tasks with a cap on how many run at once.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit applies when no usable limit is configured.
const DefaultLimit = 100

type Task func(ctx context.Context) error

type Pool struct {
	limit    int
	progress func()
	failFast bool
}

type Option func(*Pool)

// WithProgress registers fn to be called after every task that succeeds.
// fn is called from task goroutines and must be safe for concurrent use.
func WithProgress(fn func()) Option {
	return func(p *Pool) {
		p.progress = fn
	}
}

// WithFailFast stops starting tasks after the first failure. Tasks already
// running see their context canceled.
func WithFailFast() Option {
	return func(p *Pool) {
		p.failFast = true
	}
}

// Limit returns n, or DefaultLimit when n is below 1.
func Limit(n int) int {
	if n < 1 {
		return DefaultLimit
	}
	return n
}

func New(limit int, opts ...Option) *Pool {
	p := &Pool{limit: Limit(limit)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every task with at most the pool's limit in flight and waits
// for all of them to settle. The first error is returned. Unless the pool is
// fail-fast, a failure does not keep the remaining tasks from running.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	var g *errgroup.Group
	taskCtx := ctx
	if p.failFast {
		g, taskCtx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}
	g.SetLimit(p.limit)

	for _, task := range tasks {
		g.Go(func() error {
			if p.failFast {
				if err := taskCtx.Err(); err != nil {
					return err
				}
			}
			if err := task(taskCtx); err != nil {
				return err
			}
			if p.progress != nil {
				p.progress()
			}
			return nil
		})
	}

	return g.Wait()
}

// Each runs fn for every item through p.
func Each[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) error {
	tasks := make([]Task, len(items))
	for i, item := range items {
		tasks[i] = func(ctx context.Context) error {
			return fn(ctx, item)
		}
	}
	return p.Run(ctx, tasks)
}
