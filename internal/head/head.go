// Package head turns a rendered head fragment into core.Head tags.
package head

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/3-lines-studio/prerender/internal/core"
)

// Parse splits a head fragment such as
// `<title>x</title><meta name="d" content="y">` into its tag groups. Tags that
// do not belong in a head are dropped.
func Parse(fragment string) (core.Head, error) {
	var h core.Head
	if strings.TrimSpace(fragment) == "" {
		return h, nil
	}

	context := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return h, err
	}

	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}

		switch n.DataAtom {
		case atom.Title:
			h.Title = textContent(n)
		case atom.Base:
			h.Base = appendRendered(h.Base, n)
		case atom.Meta:
			h.Meta = appendRendered(h.Meta, n)
		case atom.Link:
			h.Link = appendRendered(h.Link, n)
		case atom.Script:
			h.Script = appendRendered(h.Script, n)
		case atom.Style:
			h.Style = appendRendered(h.Style, n)
		case atom.Noscript:
			h.Noscript = appendRendered(h.Noscript, n)
		}
	}

	return h, nil
}

// Attrs parses a fragment of attributes (`lang="en" class="dark"`) into a map.
func Attrs(fragment string) map[string]string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	doc, err := html.Parse(strings.NewReader("<div " + fragment + "></div>"))
	if err != nil {
		return nil
	}

	div := findFirst(doc, atom.Div)
	if div == nil || len(div.Attr) == 0 {
		return nil
	}

	attrs := make(map[string]string, len(div.Attr))
	for _, a := range div.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

func appendRendered(tags []string, n *html.Node) []string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return tags
	}
	return append(tags, b.String())
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}
