package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-lines-studio/prerender/internal/adapters/env"
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/fanout"
	"github.com/3-lines-studio/prerender/internal/ipc"
	"github.com/3-lines-studio/prerender/internal/worker"
)

// The test binary doubles as the worker: re-executed with PRERENDER_WORKER=1
// it serves one dispatch and exits.
func TestMain(m *testing.M) {
	if env.IsWorker() {
		os.Exit(runHelperWorker())
	}
	os.Exit(m.Run())
}

type helperExporter struct{}

func (helperExporter) ExportRoute(ctx context.Context, route core.Route) error {
	switch route.Path {
	case "/fail":
		return fmt.Errorf("%w: %s: template exploded", core.ErrRender, route.Path)
	case "/hang":
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func runHelperWorker() int {
	setup := func(ctx context.Context, d ipc.Dispatch) (worker.Job, error) {
		return worker.Job{Exporter: helperExporter{}, Concurrency: 2}, nil
	}
	if err := worker.Serve(context.Background(), os.Stdin, os.Stdout, setup); err != nil {
		return 1
	}
	return 0
}

func newTestSpawner(t *testing.T) *Spawner {
	t.Helper()
	s, err := NewSpawner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s.stderr = io.Discard
	return s
}

func collect(t *testing.T, w fanout.Worker) []ipc.Signal {
	t.Helper()
	var signals []ipc.Signal
	for sig := range w.Signals() {
		signals = append(signals, sig)
	}
	return signals
}

func TestSpawnerRunsShard(t *testing.T) {
	s := newTestSpawner(t)

	w, err := s.Spawn(context.Background(), ipc.Dispatch{
		Routes: []core.Route{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}},
	})
	require.NoError(t, err)

	signals := collect(t, w)
	require.NoError(t, w.Wait())

	require.Len(t, signals, 4)
	assert.Equal(t, ipc.SignalDone, signals[3].Type)
}

func TestSpawnerReportsWorkerError(t *testing.T) {
	s := newTestSpawner(t)

	w, err := s.Spawn(context.Background(), ipc.Dispatch{
		Routes: []core.Route{{Path: "/fail"}},
	})
	require.NoError(t, err)

	signals := collect(t, w)
	assert.Error(t, w.Wait())

	require.Len(t, signals, 1)
	assert.Equal(t, ipc.SignalError, signals[0].Type)
	assert.Contains(t, signals[0].Err, "template exploded")
}

func TestSpawnerCancelKillsWorker(t *testing.T) {
	s := newTestSpawner(t)
	ctx, cancel := context.WithCancel(context.Background())

	w, err := s.Spawn(ctx, ipc.Dispatch{
		Routes: []core.Route{{Path: "/hang"}},
	})
	require.NoError(t, err)

	cancel()

	done := make(chan error, 1)
	go func() {
		collect(t, w)
		done <- w.Wait()
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker survived cancellation")
	}
}

func TestCoordinatorWithProcesses(t *testing.T) {
	s := newTestSpawner(t)

	routes := make([]core.Route, 9)
	for i := range routes {
		routes[i] = core.Route{Path: fmt.Sprintf("/p/%d", i)}
	}

	result, err := fanout.New(s, fanout.WithWorkers(3)).Run(context.Background(), ipc.Dispatch{}, routes)
	require.NoError(t, err)
	assert.Equal(t, 9, result.Rendered)

	routes[4].Path = "/fail"
	_, err = fanout.New(s, fanout.WithWorkers(3)).Run(context.Background(), ipc.Dispatch{}, routes)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrWorker))
	assert.Contains(t, err.Error(), "template exploded")
}
