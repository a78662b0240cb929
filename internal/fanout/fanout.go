// Package fanout splits the route list across worker processes and follows
// their progress until every worker has finished or one has failed.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/ipc"
)

// Worker is one running worker. Signals is closed once the worker stops
// writing, which it does right after an error or done signal; Wait then
// reports how it exited.
type Worker interface {
	Signals() <-chan ipc.Signal
	Wait() error
}

// Spawner starts a worker for one dispatch. Canceling ctx must stop the
// worker.
type Spawner interface {
	Spawn(ctx context.Context, dispatch ipc.Dispatch) (Worker, error)
}

type Result struct {
	Workers  int
	Rendered int
}

type Coordinator struct {
	spawner  Spawner
	workers  int
	progress func()
	logger   *slog.Logger
}

type Option func(*Coordinator)

// WithWorkers overrides the worker count. Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithProgress registers fn to be called for every rendered route. Calls
// come from several goroutines.
func WithProgress(fn func()) Option {
	return func(c *Coordinator) {
		c.progress = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// DefaultWorkers is one worker per CPU.
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}

func New(spawner Spawner, opts ...Option) *Coordinator {
	c := &Coordinator{
		spawner: spawner,
		workers: DefaultWorkers(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run shards routes across the configured number of workers, each receiving
// base with its own route slice. It returns once every worker reported done,
// or with the first failure. A failure cancels the context shared by all
// workers, which stops the rest.
func (c *Coordinator) Run(ctx context.Context, base ipc.Dispatch, routes []core.Route) (Result, error) {
	shards := core.Shard(routes, c.workers)
	result := Result{Workers: len(shards)}

	var rendered atomic.Int64
	g, ctx := errgroup.WithContext(ctx)

	for i, shard := range shards {
		dispatch := base
		dispatch.Routes = shard

		g.Go(func() error {
			return c.follow(ctx, i, dispatch, &rendered)
		})
	}

	err := g.Wait()
	result.Rendered = int(rendered.Load())
	return result, err
}

func (c *Coordinator) follow(ctx context.Context, id int, dispatch ipc.Dispatch, rendered *atomic.Int64) error {
	worker, err := c.spawner.Spawn(ctx, dispatch)
	if err != nil {
		return fmt.Errorf("%w: start worker %d: %w", core.ErrWorker, id, err)
	}
	c.logger.Debug("worker started", "worker", id, "routes", len(dispatch.Routes))

	var (
		done      bool
		workerErr error
	)
	for sig := range worker.Signals() {
		switch sig.Type {
		case ipc.SignalTick:
			rendered.Add(1)
			if c.progress != nil {
				c.progress()
			}
		case ipc.SignalError:
			if workerErr == nil {
				workerErr = fmt.Errorf("%w: worker %d: %s", core.ErrWorker, id, sig.Err)
			}
		case ipc.SignalDone:
			done = true
		default:
			c.logger.Warn("unknown worker signal", "worker", id, "type", sig.Type)
		}
	}

	waitErr := worker.Wait()

	switch {
	case workerErr != nil:
		return workerErr
	case done:
		c.logger.Debug("worker finished", "worker", id)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case waitErr != nil:
		return fmt.Errorf("%w: worker %d exited before finishing: %w", core.ErrWorker, id, waitErr)
	default:
		return fmt.Errorf("%w: worker %d exited before finishing", core.ErrWorker, id)
	}
}
