package prerender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/3-lines-studio/prerender/internal/codec"
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/ipc"
)

func writeConfig(t *testing.T) (path, dist string) {
	t.Helper()
	root := t.TempDir()
	dist = filepath.Join(root, "dist")

	cfg := fmt.Sprintf(`site_root: https://example.com/
title: Example
workers: 2
paths:
  dist: %s
  static_data: %s
  client_stats: %s
`, dist, filepath.Join(dist, "staticData"), filepath.Join(root, "client-stats.json"))

	path = filepath.Join(root, "prerender.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return path, dist
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var testRenderer = RendererFunc(func(ctx context.Context, rc *RenderContext) (string, error) {
	return fmt.Sprintf("<h1>%v</h1>", rc.Props["title"]), nil
})

func titled(title string) PageOption {
	return WithData(func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"title": title}, nil
	})
}

func TestPageCreatesRoute(t *testing.T) {
	route := Page("/blog", "Blog", titled("Blog"), WithPriority(0.8), WithLastModified("2024-01-02"))

	if route.Path != "/blog" {
		t.Errorf("Expected path '/blog', got '%s'", route.Path)
	}
	if route.Component != "Blog" {
		t.Errorf("Expected component 'Blog', got '%s'", route.Component)
	}
	if len(route.Options) != 3 {
		t.Errorf("Expected 3 options, got %d", len(route.Options))
	}

	page := route.page()
	if page.Route.Priority != 0.8 {
		t.Errorf("Expected priority 0.8, got %v", page.Route.Priority)
	}
	if page.Route.LastModified != "2024-01-02" {
		t.Errorf("Expected lastModified '2024-01-02', got '%s'", page.Route.LastModified)
	}
	if page.GetData == nil {
		t.Error("Expected a data loader")
	}
}

func TestPageFlags(t *testing.T) {
	page := Page("/404", "NotFound", As404(), WithNoIndex()).page()

	if !page.Route.Is404 {
		t.Error("Expected Is404")
	}
	if !page.Route.NoIndex {
		t.Error("Expected NoIndex")
	}
	if page.GetData != nil {
		t.Error("Expected no data loader")
	}
}

func TestExportInProcess(t *testing.T) {
	configPath, dist := writeConfig(t)

	var report bytes.Buffer
	site := New(
		WithConfig(configPath),
		WithRoutes(
			Page("/", "Home", titled("Home")),
			Page("/about", "About", titled("About")),
			Page("/404", "NotFound", As404()),
		),
		WithSiteData(func(ctx context.Context) (any, error) {
			return map[string]any{"name": "Example"}, nil
		}),
		WithRenderer(testRenderer),
		WithInProcessWorkers(),
		WithOutput(&report),
		WithLogger(quietLogger),
	)

	output, err := site.export(context.Background())
	if err != nil {
		t.Fatalf("export: %v\n%s", err, report.String())
	}
	if output.Rendered != 3 {
		t.Errorf("Expected 3 rendered pages, got %d", output.Rendered)
	}

	about, err := os.ReadFile(filepath.Join(dist, "about", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(about), "<h1>About</h1>") {
		t.Errorf("about page missing content:\n%s", about)
	}

	for _, file := range []string{"index.html", "404.html", "sitemap.xml", "about/routeInfo.json"} {
		if _, err := os.Stat(filepath.Join(dist, file)); err != nil {
			t.Errorf("Expected %s: %v", file, err)
		}
	}
}

func TestExportCustomDocument(t *testing.T) {
	configPath, dist := writeConfig(t)
	doc := template.Must(template.New("doc").Parse(`<html {{.HTMLAttrs}}><head><title>{{.Title}}</title></head><body>{{.Body}}</body></html>`))

	site := New(
		WithConfig(configPath),
		WithRoutes(Page("/", "Home", titled("Home"))),
		WithRenderer(testRenderer),
		WithDocument(doc),
		WithInProcessWorkers(),
		WithOutput(io.Discard),
		WithLogger(quietLogger),
	)

	if err := site.Export(context.Background()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(dist, "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(index), `<!DOCTYPE html><html lang="en"><head><title>Example</title></head>`) {
		t.Errorf("unexpected document:\n%s", index)
	}
}

func TestExportWithoutRenderer(t *testing.T) {
	configPath, _ := writeConfig(t)

	site := New(
		WithConfig(configPath),
		WithRoutes(Page("/", "Home")),
		WithInProcessWorkers(),
		WithOutput(io.Discard),
		WithLogger(quietLogger),
	)

	err := site.Export(context.Background())
	if !errors.Is(err, ErrWorker) {
		t.Fatalf("Expected ErrWorker, got %v", err)
	}
	if !strings.Contains(err.Error(), ErrNoRenderer.Error()) {
		t.Errorf("Expected the missing renderer to be reported, got %v", err)
	}
}

func TestExportRejectsDuplicateRoutes(t *testing.T) {
	configPath, _ := writeConfig(t)

	site := New(
		WithConfig(configPath),
		WithRoutes(Page("/a", "A"), Page("/a/", "A")),
		WithRenderer(testRenderer),
		WithInProcessWorkers(),
		WithOutput(io.Discard),
		WithLogger(quietLogger),
	)

	if err := site.Export(context.Background()); !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("Expected ErrInvalidRoute, got %v", err)
	}
}

func TestServeWorker(t *testing.T) {
	configPath, dist := writeConfig(t)

	var in bytes.Buffer
	err := codec.NewEncoder(&in).Encode(ipc.Dispatch{
		ConfigPath: configPath,
		Routes: []core.Route{
			{Path: "/a", AllPropsJSON: []byte(`{"title":"A"}`), LocalPropsJSON: []byte(`{"title":"A"}`)},
			{Path: "/b", AllPropsJSON: []byte(`{"title":"B"}`), LocalPropsJSON: []byte(`{"title":"B"}`)},
		},
		DefaultOutputFileRate: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	stopped := false
	site := New(WithOutput(io.Discard), WithLogger(quietLogger))
	site.renderer = func(context.Context) (Renderer, func() error, error) {
		return testRenderer, func() error {
			stopped = true
			return nil
		}, nil
	}

	var out bytes.Buffer
	if err := site.serveWorker(context.Background(), &in, &out); err != nil {
		t.Fatalf("serveWorker: %v", err)
	}
	if !stopped {
		t.Error("Expected the renderer to be stopped")
	}

	dec := codec.NewDecoder(&out)
	var types []ipc.SignalType
	for {
		var sig ipc.Signal
		if err := dec.Decode(&sig); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatal(err)
			}
			break
		}
		types = append(types, sig.Type)
	}

	want := []ipc.SignalType{ipc.SignalTick, ipc.SignalTick, ipc.SignalDone}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("Expected signals %v, got %v", want, types)
	}

	page, err := os.ReadFile(filepath.Join(dist, "b", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "<h1>B</h1>") {
		t.Errorf("page missing content:\n%s", page)
	}
}
