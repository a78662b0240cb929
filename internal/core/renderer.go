package core

import (
	"context"
	"sync"
)

// Renderer produces the app markup for one route. Implementations report the
// asset chunks they touch through RenderContext.ReportChunk and describe the
// document head by filling RenderContext.Head.
type Renderer interface {
	Render(ctx context.Context, rc *RenderContext) (string, error)
}

// Head holds the head tags collected during a render. Tag slices carry
// complete tags (e.g. `<meta name="x" content="y">`); Title is plain text.
type Head struct {
	Title     string
	Base      []string
	Meta      []string
	Link      []string
	Script    []string
	Style     []string
	Noscript  []string
	HTMLAttrs map[string]string
	BodyAttrs map[string]string
}

// RenderContext is handed to the renderer once per route.
type RenderContext struct {
	Route    Route
	Props    map[string]any
	SiteData any
	Stats    *ClientStats

	// Meta is free-form data the renderer hands to the document template.
	Meta map[string]any
	Head Head

	mu     sync.Mutex
	chunks []string
}

func NewRenderContext(route Route, siteData any, stats *ClientStats) *RenderContext {
	props := route.AllProps
	if props == nil {
		props = map[string]any{}
	}
	return &RenderContext{
		Route:    route,
		Props:    props,
		SiteData: siteData,
		Stats:    stats,
		Meta:     map[string]any{},
	}
}

func (rc *RenderContext) ReportChunk(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.chunks = append(rc.chunks, name)
}

func (rc *RenderContext) Chunks() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]string, len(rc.chunks))
	copy(out, rc.chunks)
	return out
}
