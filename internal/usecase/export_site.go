package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/3-lines-studio/prerender/internal/adapters/cli"
	"github.com/3-lines-studio/prerender/internal/config"
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/datastore"
	"github.com/3-lines-studio/prerender/internal/fanout"
	"github.com/3-lines-studio/prerender/internal/ipc"
	"github.com/3-lines-studio/prerender/internal/partition"
	"github.com/3-lines-studio/prerender/internal/pool"
)

type ExportInput struct {
	Pages    []Page
	SiteData SiteDataLoader
	// ConfigPath is handed to workers so they load the same configuration.
	ConfigPath string
	Staging    bool
}

type ExportOutput struct {
	Routes    []core.Route
	Templates []string
	Artifacts []core.Artifact
	Rendered  int
	Workers   int
}

type ExportService struct {
	cfg     *config.Config
	fs      FileSystem
	out     *cli.Output
	spawner Spawner
	logger  *slog.Logger
}

func NewExportService(cfg *config.Config, fs FileSystem, out *cli.Output, spawner Spawner, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		cfg:     cfg,
		fs:      fs,
		out:     out,
		spawner: spawner,
		logger:  logger,
	}
}

// Export runs the whole pipeline: prepare routes, fetch site and route data,
// extract shared data into artifacts, render every page across workers and
// write the sitemap.
func (s *ExportService) Export(ctx context.Context, input ExportInput) (ExportOutput, error) {
	var output ExportOutput

	s.out.PrintHeader("Prerender Export")
	report := cli.NewExportReport(s.out, s.cfg.Paths.Dist)
	defer report.Render()

	step := report.StartStep("Prepare routes")
	routes, loaders, templates, err := prepareRoutes(input.Pages)
	report.EndStep(step, err)
	if err != nil {
		return output, err
	}
	report.SetRouteCount(len(routes))
	output.Routes = routes
	output.Templates = templates

	step = report.StartStep("Fetch site data")
	siteData, err := loadSiteData(ctx, input.SiteData)
	report.EndStep(step, err)
	if err != nil {
		return output, err
	}

	rate := s.cfg.OutputRate(pool.DefaultLimit)
	store := datastore.New()

	step = report.StartStep("Fetch route data")
	err = s.fetchRouteData(ctx, routes, loaders, store, rate)
	report.EndStep(step, err)
	if err != nil {
		return output, err
	}

	step = report.StartStep("Extract shared data")
	err = store.MaterializeShared()
	if err == nil {
		partition.Routes(routes, store)
		err = encodeRoutes(routes)
	}
	report.EndStep(step, err)
	if err != nil {
		return output, err
	}

	output.Artifacts = store.Artifacts()
	if len(output.Artifacts) > 0 {
		step = report.StartStep(fmt.Sprintf("Write %d shared data files", len(output.Artifacts)))
		err = s.writeArtifacts(ctx, output.Artifacts, rate)
		report.EndStep(step, err)
		if err != nil {
			return output, err
		}
	}

	stats, err := s.loadClientStats()
	if err != nil {
		return output, err
	}

	step = report.StartStep("Export HTML")
	progress := cli.NewProgress(s.out, "HTML", len(routes))
	coordinator := fanout.New(s.spawner,
		fanout.WithWorkers(s.cfg.Workers),
		fanout.WithProgress(progress.Tick),
		fanout.WithLogger(s.logger),
	)
	result, err := coordinator.Run(ctx, ipc.Dispatch{
		ConfigPath:            input.ConfigPath,
		SiteData:              siteData,
		ClientStats:           stats,
		DefaultOutputFileRate: rate,
		Staging:               input.Staging,
	}, routes)
	progress.Finish()
	report.EndStep(step, err)
	output.Rendered = result.Rendered
	output.Workers = result.Workers
	if err != nil {
		report.AddError("Export HTML", "a worker failed", []string{err.Error()})
		return output, err
	}

	if s.cfg.SiteRoot != "" {
		step = report.StartStep("Write sitemap.xml")
		err = s.writeSitemap(routes)
		report.EndStep(step, err)
		if err != nil {
			return output, err
		}
	}

	return output, nil
}

// prepareRoutes validates and normalizes the declared routes and numbers
// their templates. Loaders stay index-aligned with the returned routes.
func prepareRoutes(pages []Page) ([]core.Route, []DataLoader, []string, error) {
	routes := make([]core.Route, 0, len(pages))
	loaders := make([]DataLoader, 0, len(pages))
	seen := make(map[string]bool, len(pages))
	var notFound string

	for _, page := range pages {
		route := page.Route
		route.Path = core.NormalizePath(route.Path)

		if err := core.ValidateRoutePath(route.Path); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %q: %w", core.ErrInvalidRoute, page.Route.Path, err)
		}
		if seen[route.Path] {
			return nil, nil, nil, fmt.Errorf("%w: duplicate route %s", core.ErrInvalidRoute, route.Path)
		}
		seen[route.Path] = true

		if route.Is404 {
			if notFound != "" {
				return nil, nil, nil, fmt.Errorf("%w: both %s and %s are marked as the 404 page", core.ErrInvalidRoute, notFound, route.Path)
			}
			notFound = route.Path
		}

		routes = append(routes, route)
		loaders = append(loaders, page.GetData)
	}

	templates := core.AssignTemplateIDs(routes)
	return routes, loaders, templates, nil
}

// loadSiteData runs the site data hook and encodes its result, which is
// copied into every worker dispatch.
func loadSiteData(ctx context.Context, load SiteDataLoader) (json.RawMessage, error) {
	var data any
	if load != nil {
		var err error
		if data, err = load(ctx); err != nil {
			return nil, fmt.Errorf("%w: site data: %w", core.ErrDataFetch, err)
		}
	}
	encoded, err := core.MarshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: site data: %w", core.ErrSerialize, err)
	}
	return encoded, nil
}

// encodeRoutes fixes the JSON form of every route's props before dispatch.
func encodeRoutes(routes []core.Route) error {
	for i := range routes {
		if err := routes[i].EncodeProps(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExportService) fetchRouteData(ctx context.Context, routes []core.Route, loaders []DataLoader, store *datastore.Store, rate int) error {
	tasks := make([]pool.Task, len(routes))
	for i := range routes {
		tasks[i] = func(ctx context.Context) error {
			route := &routes[i]

			props := map[string]any{}
			if load := loaders[i]; load != nil {
				data, err := load(ctx)
				if err != nil {
					return fmt.Errorf("%w: %s: %w", core.ErrDataFetch, route.Path, err)
				}
				if data != nil {
					props = data
				}
			}
			route.AllProps = props

			for _, v := range props {
				store.Record(v)
			}
			return nil
		}
	}

	return pool.New(rate).Run(ctx, tasks)
}

func (s *ExportService) writeArtifacts(ctx context.Context, artifacts []core.Artifact, rate int) error {
	var opts []datastore.WriterOption
	if s.cfg.Compress {
		opts = append(opts, datastore.WithCompression())
	}

	w, err := datastore.NewWriter(s.fs, s.cfg.Paths.StaticData, opts...)
	if err != nil {
		return err
	}

	err = pool.Each(ctx, pool.New(rate), artifacts, w.Write)
	return errors.Join(err, w.Close())
}

func (s *ExportService) loadClientStats() (*core.ClientStats, error) {
	path := s.cfg.Paths.ClientStats
	if path == "" || !s.fs.FileExists(path) {
		s.logger.Debug("no client stats, pages will not load chunks", "path", path)
		return nil, nil
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client stats %s: %w", path, err)
	}
	stats, err := core.ParseClientStats(data)
	if err != nil {
		return nil, fmt.Errorf("parse client stats %s: %w", path, err)
	}
	return stats, nil
}

func (s *ExportService) writeSitemap(routes []core.Route) error {
	xml, err := core.GenerateSitemap(s.cfg.PublicPath, routes)
	if err != nil {
		return fmt.Errorf("%w: sitemap: %w", core.ErrSerialize, err)
	}

	path := filepath.Join(s.cfg.Paths.Dist, "sitemap.xml")
	if err := s.fs.MkdirAll(s.cfg.Paths.Dist, 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrWrite, s.cfg.Paths.Dist, err)
	}
	if err := s.fs.WriteFile(path, xml, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrWrite, path, err)
	}
	return nil
}
