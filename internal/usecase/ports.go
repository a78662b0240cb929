package usecase

import (
	"context"

	"github.com/3-lines-studio/prerender/internal/adapters/fs"
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/fanout"
)

type FileSystem = fs.FileSystem

type Spawner = fanout.Spawner

// DataLoader fetches one route's props. A nil result means no props.
type DataLoader func(ctx context.Context) (map[string]any, error)

// SiteDataLoader fetches data shared by every page; it runs once per export.
type SiteDataLoader func(ctx context.Context) (any, error)

// Page is a declared route together with its data loader.
type Page struct {
	Route   core.Route
	GetData DataLoader
}
