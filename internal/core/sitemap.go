package core

import (
	"encoding/xml"
	"strconv"
	"strings"
)

const defaultPriority = 0.5

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc      string `xml:"loc"`
	LastMod  string `xml:"lastmod,omitempty"`
	Priority string `xml:"priority,omitempty"`
}

// GenerateSitemap renders sitemap.xml for every route that is neither the
// not-found page nor marked noindex.
func GenerateSitemap(publicPath string, routes []Route) ([]byte, error) {
	var set sitemapURLSet

	for _, route := range routes {
		if route.Is404 || route.NoIndex {
			continue
		}

		priority := route.Priority
		if priority == 0 {
			priority = defaultPriority
		}

		set.URLs = append(set.URLs, sitemapURL{
			Loc:      Permalink(publicPath, route.Path),
			LastMod:  route.LastModified,
			Priority: strconv.FormatFloat(priority, 'f', -1, 64),
		})
	}

	body, err := xml.Marshal(set)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header[:len(xml.Header)-1]), body...), nil
}

// Permalink joins publicPath and a route path, ending in exactly one slash.
func Permalink(publicPath, routePath string) string {
	loc := publicPath + strings.TrimPrefix(routePath, "/")
	return strings.TrimRight(loc, "/") + "/"
}
