package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/3-lines-studio/prerender/internal/core"
)

type RouteExporterConfig struct {
	DistDir    string
	PublicPath string
	SiteRoot   string
	Title      string
	// Staging leaves root-relative links alone even when SiteRoot is set.
	Staging  bool
	Document *template.Template
	// SiteData is the JSON encoded by the export process.
	SiteData json.RawMessage
	Stats    *core.ClientStats
}

// RouteExporter renders one route into its index.html (or 404.html) and the
// routeInfo.json next to it.
type RouteExporter struct {
	renderer core.Renderer
	fs       FileSystem
	cfg      RouteExporterConfig
}

func NewRouteExporter(renderer core.Renderer, fs FileSystem, cfg RouteExporterConfig) *RouteExporter {
	return &RouteExporter{
		renderer: renderer,
		fs:       fs,
		cfg:      cfg,
	}
}

func (e *RouteExporter) ExportRoute(ctx context.Context, route core.Route) error {
	if err := route.DecodeProps(); err != nil {
		return err
	}
	siteData, err := e.decodeSiteData()
	if err != nil {
		return err
	}

	rc := core.NewRenderContext(route, siteData, e.cfg.Stats)

	appHTML, err := e.renderer.Render(ctx, rc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrRender, route.Path, err)
	}

	scripts, stylesheets := core.FlushChunks(e.cfg.Stats, rc.Chunks())

	embedded, err := route.Embedded(e.cfg.SiteData)
	if err != nil {
		return err
	}

	doc, err := core.ComposeDocument(e.cfg.Document, core.DocumentInput{
		AppHTML:     appHTML,
		Head:        rc.Head,
		Title:       e.cfg.Title,
		PublicPath:  e.cfg.PublicPath,
		Scripts:     scripts,
		Stylesheets: stylesheets,
		RouteInfo:   embedded,
		SiteData:    siteData,
		RenderMeta:  rc.Meta,
	})
	if err != nil {
		return err
	}

	if e.cfg.SiteRoot != "" && !e.cfg.Staging {
		doc = core.RewriteSiteRoot(doc, e.cfg.SiteRoot)
	}

	info, err := core.MarshalJSON(embedded.RouteInfo)
	if err != nil {
		return fmt.Errorf("%w: route info for %s: %w", core.ErrSerialize, route.Path, err)
	}

	paths := core.RouteOutputPaths(e.cfg.DistDir, route)
	for _, dir := range []string{filepath.Dir(paths.HTML), filepath.Dir(paths.RouteInfo)} {
		if err := e.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %s: %w", core.ErrWrite, dir, err)
		}
	}
	if err := e.fs.WriteFile(paths.HTML, []byte(doc), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrWrite, paths.HTML, err)
	}
	if err := e.fs.WriteFile(paths.RouteInfo, info, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrWrite, paths.RouteInfo, err)
	}

	return nil
}

// decodeSiteData gives each render its own copy of the site data.
func (e *RouteExporter) decodeSiteData() (any, error) {
	if len(e.cfg.SiteData) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(e.cfg.SiteData, &v); err != nil {
		return nil, fmt.Errorf("%w: site data: %w", core.ErrSerialize, err)
	}
	return v, nil
}
