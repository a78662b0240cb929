// Package worker is the loop run inside a worker process: read the dispatch,
// render every route of the shard and report progress back.
package worker

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/3-lines-studio/prerender/internal/codec"
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/ipc"
	"github.com/3-lines-studio/prerender/internal/pool"
)

// Exporter renders and writes a single route.
type Exporter interface {
	ExportRoute(ctx context.Context, route core.Route) error
}

// Job is what a worker runs its shard with.
type Job struct {
	Exporter Exporter
	// Concurrency caps routes rendered at once; below 1 means the dispatch
	// default.
	Concurrency int
	// Close, when set, runs after the shard finished or failed.
	Close func() error
}

// Setup builds the job for a dispatch, typically by reloading configuration
// from dispatch.ConfigPath.
type Setup func(ctx context.Context, dispatch ipc.Dispatch) (Job, error)

// Serve reads one dispatch from in, renders its routes and writes signals to
// out: a tick per route, then done. The first failing route writes an error
// signal right away, after which nothing else is written, and Serve returns
// without waiting for the routes still in flight. Their context is canceled.
func Serve(ctx context.Context, in io.Reader, out io.Writer, setup Setup) error {
	signals := &signalWriter{enc: codec.NewEncoder(out)}

	var dispatch ipc.Dispatch
	if err := codec.NewDecoder(in).Decode(&dispatch); err != nil {
		err = fmt.Errorf("%w: read dispatch: %w", core.ErrWorker, err)
		signals.fail(err)
		return err
	}

	job, err := setup(ctx, dispatch)
	if err != nil {
		signals.fail(err)
		return err
	}
	if job.Close != nil {
		defer job.Close()
	}

	limit := job.Concurrency
	if limit < 1 {
		limit = dispatch.DefaultOutputFileRate
	}

	failed := make(chan error, 1)
	var once sync.Once
	fail := func(err error) {
		once.Do(func() {
			signals.fail(err)
			failed <- err
		})
	}

	p := pool.New(limit, pool.WithFailFast(), pool.WithProgress(func() {
		signals.send(ipc.Tick())
	}))

	finished := make(chan error, 1)
	go func() {
		finished <- pool.Each(ctx, p, dispatch.Routes, func(ctx context.Context, route core.Route) error {
			err := job.Exporter.ExportRoute(ctx, route)
			if err != nil {
				fail(err)
			}
			return err
		})
	}()

	select {
	case err := <-failed:
		return err
	case err := <-finished:
		if err != nil {
			fail(err)
			return err
		}
		return signals.send(ipc.Done())
	}
}

// signalWriter serializes signal writes from pool goroutines. Once an error
// has been written it drops everything else.
type signalWriter struct {
	mu     sync.Mutex
	enc    *codec.Encoder
	failed bool
}

func (w *signalWriter) send(sig ipc.Signal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed {
		return nil
	}
	return w.enc.Encode(sig)
}

func (w *signalWriter) fail(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed {
		return nil
	}
	w.failed = true
	return w.enc.Encode(ipc.Error(err))
}
