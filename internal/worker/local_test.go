package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/fanout"
	"github.com/3-lines-studio/prerender/internal/ipc"
)

func TestLocalSpawnerWithCoordinator(t *testing.T) {
	exporter := &recordingExporter{}
	spawner := LocalSpawner{Setup: func(ctx context.Context, d ipc.Dispatch) (Job, error) {
		return Job{Exporter: exporter, Concurrency: 2}, nil
	}}

	routes := make([]core.Route, 7)
	for i := range routes {
		routes[i] = core.Route{Path: fmt.Sprintf("/r/%d", i), AllProps: map[string]any{"i": i}}
	}

	result, err := fanout.New(spawner, fanout.WithWorkers(4)).Run(context.Background(), ipc.Dispatch{}, routes)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Rendered)
	assert.Len(t, exporter.paths, 7)
}

func TestLocalSpawnerFailure(t *testing.T) {
	spawner := LocalSpawner{Setup: func(ctx context.Context, d ipc.Dispatch) (Job, error) {
		return Job{Exporter: &recordingExporter{fail: "/r/2"}}, nil
	}}

	routes := []core.Route{{Path: "/r/0"}, {Path: "/r/1"}, {Path: "/r/2"}, {Path: "/r/3"}}

	_, err := fanout.New(spawner, fanout.WithWorkers(2)).Run(context.Background(), ipc.Dispatch{DefaultOutputFileRate: 1}, routes)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrWorker)
	assert.Contains(t, err.Error(), "render failed for /r/2")
}
