package prerender

import (
	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/usecase"
)

type PageOption func(*pageConfig)

type pageConfig struct {
	loader       DataLoader
	is404        bool
	noIndex      bool
	lastModified string
	priority     float64
}

// Route is one page of the site: a path rendered with a component.
type Route struct {
	Path      string
	Component string
	Options   []PageOption
}

func Page(path string, component string, opts ...PageOption) Route {
	return Route{
		Path:      path,
		Component: component,
		Options:   opts,
	}
}

// WithData sets the loader for the page's props.
func WithData(loader DataLoader) PageOption {
	return func(c *pageConfig) {
		c.loader = loader
	}
}

// As404 marks the page as the not-found page, written to 404.html. A site
// has at most one.
func As404() PageOption {
	return func(c *pageConfig) {
		c.is404 = true
	}
}

// WithNoIndex keeps the page out of sitemap.xml.
func WithNoIndex() PageOption {
	return func(c *pageConfig) {
		c.noIndex = true
	}
}

func WithLastModified(date string) PageOption {
	return func(c *pageConfig) {
		c.lastModified = date
	}
}

// WithPriority sets the sitemap priority; zero means 0.5.
func WithPriority(priority float64) PageOption {
	return func(c *pageConfig) {
		c.priority = priority
	}
}

func (r Route) config() pageConfig {
	var c pageConfig
	for _, opt := range r.Options {
		opt(&c)
	}
	return c
}

func (r Route) page() usecase.Page {
	c := r.config()
	return usecase.Page{
		Route: core.Route{
			Path:         r.Path,
			Component:    r.Component,
			Is404:        c.is404,
			NoIndex:      c.noIndex,
			LastModified: c.lastModified,
			Priority:     c.priority,
		},
		GetData: c.loader,
	}
}
