// Package prerender exports a site of server-rendered pages to static files.
//
// A site binary declares its routes and renderer and calls Export. The same
// binary doubles as its own render worker: Export re-executes it with
// PRERENDER_WORKER=1 once per worker and, in that mode, renders the shard of
// routes read from stdin instead of orchestrating.
package prerender

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"

	"github.com/3-lines-studio/prerender/internal/adapters/cli"
	"github.com/3-lines-studio/prerender/internal/adapters/env"
	"github.com/3-lines-studio/prerender/internal/adapters/fs"
	"github.com/3-lines-studio/prerender/internal/adapters/process"
	"github.com/3-lines-studio/prerender/internal/config"
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/ipc"
	"github.com/3-lines-studio/prerender/internal/usecase"
	"github.com/3-lines-studio/prerender/internal/worker"
)

type Renderer = core.Renderer

type RenderContext = core.RenderContext

type Head = core.Head

type DataLoader = usecase.DataLoader

type SiteDataLoader = usecase.SiteDataLoader

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, rc *RenderContext) (string, error)

func (f RendererFunc) Render(ctx context.Context, rc *RenderContext) (string, error) {
	return f(ctx, rc)
}

var (
	ErrInvalidRoute = core.ErrInvalidRoute
	ErrDataFetch    = core.ErrDataFetch
	ErrSerialize    = core.ErrSerialize
	ErrRender       = core.ErrRender
	ErrWrite        = core.ErrWrite
	ErrWorker       = core.ErrWorker

	ErrNoRenderer = errors.New("prerender: no renderer configured")
)

// rendererFactory starts a renderer inside a worker. stop releases it.
type rendererFactory func(ctx context.Context) (r Renderer, stop func() error, err error)

type Site struct {
	routes     []Route
	configPath string
	siteData   SiteDataLoader
	renderer   rendererFactory
	document   *template.Template
	logger     *slog.Logger
	out        *cli.Output
	inProcess  bool
	staging    bool
}

type Option func(*Site)

// WithConfig names the YAML config file. Without it the PRERENDER_CONFIG
// environment variable is used, then the defaults.
func WithConfig(path string) Option {
	return func(s *Site) {
		s.configPath = path
	}
}

func WithRoutes(routes ...Route) Option {
	return func(s *Site) {
		s.routes = append(s.routes, routes...)
	}
}

// WithSiteData sets the loader for data available to every page.
func WithSiteData(loader SiteDataLoader) Option {
	return func(s *Site) {
		s.siteData = loader
	}
}

// WithRenderer renders with r. Every in-process worker shares it.
func WithRenderer(r Renderer) Option {
	return func(s *Site) {
		s.renderer = func(context.Context) (Renderer, func() error, error) {
			return r, func() error { return nil }, nil
		}
	}
}

// WithBunRenderer renders through `bun run script`, one server per worker.
func WithBunRenderer(script string) Option {
	return func(s *Site) {
		s.renderer = func(context.Context) (Renderer, func() error, error) {
			r, err := process.NewBunRenderer(script)
			if err != nil {
				return nil, nil, err
			}
			return r, r.Stop, nil
		}
	}
}

// WithEmbeddedRenderer renders through a compiled render server stored at
// path inside fsys.
func WithEmbeddedRenderer(fsys iofs.FS, path string) Option {
	return func(s *Site) {
		s.renderer = func(context.Context) (Renderer, func() error, error) {
			executable, cleanup, err := process.ExtractRuntime(fsys, path)
			if err != nil {
				return nil, nil, err
			}
			r, err := process.NewBunRendererFromExecutable(executable, cleanup)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			return r, r.Stop, nil
		}
	}
}

// WithDocument replaces the page template. It is executed with
// core.DocumentData.
func WithDocument(tmpl *template.Template) Option {
	return func(s *Site) {
		s.document = tmpl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) {
		s.logger = logger
	}
}

// WithOutput sends the export report to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Site) {
		s.out = cli.NewWriterOutput(w)
	}
}

// WithInProcessWorkers runs workers as goroutines instead of child
// processes.
func WithInProcessWorkers() Option {
	return func(s *Site) {
		s.inProcess = true
	}
}

// WithStaging keeps root-relative links as they are, as does
// PRERENDER_STAGING=1.
func WithStaging() Option {
	return func(s *Site) {
		s.staging = true
	}
}

func New(opts ...Option) *Site {
	s := &Site{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = cli.NewLogger(slog.LevelInfo)
	}
	if s.out == nil {
		s.out = cli.NewOutput()
	}
	return s
}

// Export writes the site. In a worker process it renders the shard read
// from stdin instead.
func (s *Site) Export(ctx context.Context) error {
	if env.IsWorker() {
		return s.serveWorker(ctx, os.Stdin, os.Stdout)
	}

	_, err := s.export(ctx)
	return err
}

func (s *Site) export(ctx context.Context) (usecase.ExportOutput, error) {
	cfg, err := loadConfig(s.configPath)
	if err != nil {
		return usecase.ExportOutput{}, err
	}

	var spawner usecase.Spawner
	if s.inProcess {
		spawner = worker.LocalSpawner{Setup: s.setup}
	} else {
		spawner, err = process.NewSpawner(s.logger, os.Args[1:]...)
		if err != nil {
			return usecase.ExportOutput{}, err
		}
	}

	pages := make([]usecase.Page, len(s.routes))
	for i, route := range s.routes {
		pages[i] = route.page()
	}

	configPath := s.configPath
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfig)
	}

	service := usecase.NewExportService(cfg, fs.NewOSFileSystem(), s.out, spawner, s.logger)
	output, err := service.Export(ctx, usecase.ExportInput{
		Pages:      pages,
		SiteData:   s.siteData,
		ConfigPath: configPath,
		Staging:    s.staging || env.IsStaging(),
	})
	if err != nil {
		return output, err
	}

	s.logger.Debug("export finished",
		"routes", len(output.Routes),
		"templates", len(output.Templates),
		"artifacts", len(output.Artifacts),
		"workers", output.Workers,
	)
	return output, nil
}

func (s *Site) serveWorker(ctx context.Context, in io.Reader, out io.Writer) error {
	return worker.Serve(ctx, in, out, s.setup)
}

// setup builds a worker's job from its dispatch: configuration is reloaded
// from the dispatched path and a fresh renderer is started.
func (s *Site) setup(ctx context.Context, d ipc.Dispatch) (worker.Job, error) {
	if s.renderer == nil {
		return worker.Job{}, ErrNoRenderer
	}

	cfg, err := loadConfig(d.ConfigPath)
	if err != nil {
		return worker.Job{}, err
	}

	renderer, stop, err := s.renderer(ctx)
	if err != nil {
		return worker.Job{}, fmt.Errorf("%w: start renderer: %w", core.ErrWorker, err)
	}

	exporter := usecase.NewRouteExporter(renderer, fs.NewOSFileSystem(), usecase.RouteExporterConfig{
		DistDir:    cfg.Paths.Dist,
		PublicPath: cfg.PublicPath,
		SiteRoot:   cfg.SiteRoot,
		Title:      cfg.Title,
		Staging:    d.Staging,
		Document:   s.document,
		SiteData:   d.SiteData,
		Stats:      d.ClientStats,
	})

	return worker.Job{
		Exporter:    exporter,
		Concurrency: cfg.OutputRate(0),
		Close:       stop,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
