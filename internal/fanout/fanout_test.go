package fanout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/ipc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeWorker renders a shard in a goroutine. Routes named /fail report an
// error, /block waits for cancellation and /vanish stops without a signal.
type fakeWorker struct {
	signals chan ipc.Signal
	err     error
	done    chan struct{}
}

func (w *fakeWorker) Signals() <-chan ipc.Signal { return w.signals }

func (w *fakeWorker) Wait() error {
	<-w.done
	return w.err
}

type fakeSpawner struct {
	mu        sync.Mutex
	shards    [][]string
	canceled  atomic.Int32
	spawnErr  error
	siteDatas []string
}

func (s *fakeSpawner) Spawn(ctx context.Context, d ipc.Dispatch) (Worker, error) {
	if s.spawnErr != nil {
		return nil, s.spawnErr
	}

	paths := make([]string, len(d.Routes))
	for i, r := range d.Routes {
		paths[i] = r.Path
	}
	s.mu.Lock()
	s.shards = append(s.shards, paths)
	s.siteDatas = append(s.siteDatas, string(d.SiteData))
	s.mu.Unlock()

	w := &fakeWorker{signals: make(chan ipc.Signal), done: make(chan struct{})}
	go func() {
		defer close(w.done)
		defer close(w.signals)

		send := func(sig ipc.Signal) bool {
			select {
			case w.signals <- sig:
				return true
			case <-ctx.Done():
				s.canceled.Add(1)
				w.err = ctx.Err()
				return false
			}
		}

		for _, route := range d.Routes {
			switch route.Path {
			case "/fail":
				send(ipc.Error(fmt.Errorf("render %s: boom", route.Path)))
				w.err = errors.New("exit status 1")
				return
			case "/block":
				<-ctx.Done()
				s.canceled.Add(1)
				w.err = ctx.Err()
				return
			case "/vanish":
				return
			}
			if !send(ipc.Tick()) {
				return
			}
		}
		send(ipc.Done())
	}()
	return w, nil
}

func routes(paths ...string) []core.Route {
	out := make([]core.Route, len(paths))
	for i, p := range paths {
		out[i] = core.Route{Path: p}
	}
	return out
}

func TestRunCoversEveryRoute(t *testing.T) {
	spawner := &fakeSpawner{}
	var ticks atomic.Int32

	c := New(spawner, WithWorkers(4), WithProgress(func() { ticks.Add(1) }))
	result, err := c.Run(context.Background(), ipc.Dispatch{SiteData: []byte(`"site"`)},
		routes("/a", "/b", "/c", "/d", "/e", "/f", "/g"))

	require.NoError(t, err)
	assert.Equal(t, 4, result.Workers)
	assert.Equal(t, 7, result.Rendered)
	assert.Equal(t, int32(7), ticks.Load())

	sizes := make([]int, 0, len(spawner.shards))
	var seen []string
	for _, shard := range spawner.shards {
		sizes = append(sizes, len(shard))
		seen = append(seen, shard...)
	}
	sort.Ints(sizes)
	sort.Strings(seen)
	assert.Equal(t, []int{1, 1, 1, 4}, sizes)
	assert.Equal(t, []string{"/a", "/b", "/c", "/d", "/e", "/f", "/g"}, seen)

	for _, sd := range spawner.siteDatas {
		assert.Equal(t, `"site"`, sd)
	}
}

func TestRunEmptyShardsStillComplete(t *testing.T) {
	spawner := &fakeSpawner{}

	result, err := New(spawner, WithWorkers(3)).Run(context.Background(), ipc.Dispatch{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Workers)
	assert.Zero(t, result.Rendered)
	assert.Len(t, spawner.shards, 3)
}

func TestRunWorkerErrorCancelsSiblings(t *testing.T) {
	spawner := &fakeSpawner{}

	errCh := make(chan error, 1)
	go func() {
		// Shards: [/block] [/fail]
		_, err := New(spawner, WithWorkers(2)).Run(context.Background(), ipc.Dispatch{}, routes("/block", "/fail"))
		errCh <- err
	}()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrWorker)
		assert.Contains(t, err.Error(), "render /fail: boom")
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not return after a worker error")
	}

	assert.Equal(t, int32(1), spawner.canceled.Load())
}

func TestRunWorkerExitWithoutDone(t *testing.T) {
	spawner := &fakeSpawner{}

	_, err := New(spawner, WithWorkers(1)).Run(context.Background(), ipc.Dispatch{}, routes("/a", "/vanish"))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrWorker)
	assert.Contains(t, err.Error(), "exited before finishing")
}

func TestRunSpawnFailure(t *testing.T) {
	spawner := &fakeSpawner{spawnErr: errors.New("no such binary")}

	_, err := New(spawner, WithWorkers(2)).Run(context.Background(), ipc.Dispatch{}, routes("/a"))

	assert.ErrorIs(t, err, core.ErrWorker)
}

func TestRunParentCanceled(t *testing.T) {
	spawner := &fakeSpawner{}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := New(spawner, WithWorkers(1)).Run(ctx, ipc.Dispatch{}, routes("/block"))
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator ignored cancellation")
	}
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)

	c := New(&fakeSpawner{}, WithWorkers(0))
	assert.Equal(t, DefaultWorkers(), c.workers)
}
