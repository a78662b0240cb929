// Command example exports a small blog. Posts share an author record and a
// long footer, which end up as shared data files under staticData/.
//
// Pages are rendered in Go unless --bun-script points at a render server.
package main

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/3-lines-studio/prerender"
	"github.com/3-lines-studio/prerender/internal/adapters/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		bunScript  string
		inProcess  bool
		staging    bool
		verbose    bool
	)

	flagSet := pflag.NewFlagSet("example", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to prerender.yaml (default: $PRERENDER_CONFIG)")
	flagSet.StringVar(&bunScript, "bun-script", "", "render with bun using this script")
	flagSet.BoolVar(&inProcess, "in-process", false, "render in goroutines instead of worker processes")
	flagSet.BoolVar(&staging, "staging", false, "keep root-relative links")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := []prerender.Option{
		prerender.WithConfig(configPath),
		prerender.WithRoutes(routes()...),
		prerender.WithSiteData(func(ctx context.Context) (any, error) {
			return map[string]any{"name": "Example Blog"}, nil
		}),
		prerender.WithLogger(cli.NewLogger(level)),
	}
	if bunScript != "" {
		opts = append(opts, prerender.WithBunRenderer(bunScript))
	} else {
		opts = append(opts, prerender.WithRenderer(prerender.RendererFunc(render)))
	}
	if inProcess {
		opts = append(opts, prerender.WithInProcessWorkers())
	}
	if staging {
		opts = append(opts, prerender.WithStaging())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return prerender.New(opts...).Export(ctx)
}

var (
	author = map[string]any{
		"name": "Ada",
		"bio":  "Writes about engines, looms and the numbers in between.",
	}
	footer = strings.Repeat("Copyright Example Blog. Words may be quoted with a link back. ", 3)
)

func routes() []prerender.Route {
	routes := []prerender.Route{
		prerender.Page("/", "Home", prerender.WithPriority(1), prerender.WithData(props("Home", nil))),
		prerender.Page("/about", "About", prerender.WithData(props("About", map[string]any{"author": author}))),
		prerender.Page("/drafts", "Home", prerender.WithNoIndex(), prerender.WithData(props("Drafts", nil))),
		prerender.Page("/404", "NotFound", prerender.As404()),
	}

	for i := 1; i <= 20; i++ {
		title := fmt.Sprintf("Post %d", i)
		routes = append(routes, prerender.Page(
			fmt.Sprintf("/blog/post-%d", i),
			"Post",
			prerender.WithLastModified(fmt.Sprintf("2024-01-%02d", i)),
			prerender.WithData(props(title, map[string]any{"author": author})),
		))
	}

	return routes
}

func props(title string, extra map[string]any) prerender.DataLoader {
	return func(ctx context.Context) (map[string]any, error) {
		p := map[string]any{"title": title, "footer": footer}
		for k, v := range extra {
			p[k] = v
		}
		return p, nil
	}
}

func render(ctx context.Context, rc *prerender.RenderContext) (string, error) {
	rc.ReportChunk(rc.Route.Component)

	title, _ := rc.Props["title"].(string)
	rc.Head.Title = title
	rc.Head.Meta = append(rc.Head.Meta, `<meta name="description" content="`+html.EscapeString(title)+`" />`)

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(title))
	if a, ok := rc.Props["author"].(map[string]any); ok {
		fmt.Fprintf(&b, "<p>by %s</p>", html.EscapeString(fmt.Sprint(a["name"])))
	}
	b.WriteString(`<nav><a href="/">Home</a> <a href="/about">About</a></nav>`)
	if f, ok := rc.Props["footer"].(string); ok {
		fmt.Fprintf(&b, "<footer>%s</footer>", html.EscapeString(f))
	}
	return b.String(), nil
}
