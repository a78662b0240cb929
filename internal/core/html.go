package core

import (
	"fmt"
	"html"
	"html/template"
	"regexp"
	"sort"
	"strings"
)

// DocumentData is what a document template is executed with.
type DocumentData struct {
	HTMLAttrs  template.HTMLAttr
	BodyAttrs  template.HTMLAttr
	Title      string
	Head       template.HTML
	Body       template.HTML
	SiteData   any
	RenderMeta map[string]any
}

var DefaultDocument = template.Must(template.New("document").Parse(`<html {{.HTMLAttrs}}>
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    {{if .Title}}<title>{{.Title}}</title>{{end}}{{.Head}}
  </head>
  <body {{.BodyAttrs}}>{{.Body}}</body>
</html>
`))

// DocumentInput collects everything a page is assembled from.
type DocumentInput struct {
	AppHTML     string
	Head        Head
	Title       string
	PublicPath  string
	Scripts     []string
	Stylesheets []string
	RouteInfo   EmbeddedRouteInfo
	// SiteData is the decoded site data handed to custom templates.
	SiteData   any
	RenderMeta map[string]any
}

var (
	scriptTagPattern = regexp.MustCompile(`(?i)<(/)?(script)`)
	rootHrefPattern  = regexp.MustCompile(`(href=["'])/([^/])`)
)

// EscapeScriptJSON breaks up <script and </script inside JSON that is about to
// be inlined in a script tag. The replacement is only valid inside JSON string
// literals, which is the only place '<' can occur in JSON.
func EscapeScriptJSON(data string) string {
	return scriptTagPattern.ReplaceAllString(data, `<"+"${1}${2}`)
}

// RewriteSiteRoot prefixes root-relative hrefs with siteRoot. Protocol-relative
// hrefs (//host/...) are left alone.
func RewriteSiteRoot(doc, siteRoot string) string {
	siteRoot = strings.TrimRight(siteRoot, "/")
	if siteRoot == "" {
		return doc
	}
	replacement := "${1}" + strings.ReplaceAll(siteRoot, "$", "$$") + "/${2}"
	return rootHrefPattern.ReplaceAllString(doc, replacement)
}

// ComposeDocument assembles the final page: head tags, chunk preloads and
// stylesheets, the app markup, the inline route data for hydration and the
// deferred chunk scripts. tmpl defaults to DefaultDocument.
func ComposeDocument(tmpl *template.Template, in DocumentInput) (string, error) {
	if tmpl == nil {
		tmpl = DefaultDocument
	}

	routeJSON, err := MarshalJSON(in.RouteInfo)
	if err != nil {
		return "", fmt.Errorf("%w: route info for %s: %w", ErrSerialize, in.RouteInfo.Path, err)
	}

	title := in.Title
	if in.Head.Title != "" {
		title = in.Head.Title
	}

	htmlAttrs := map[string]string{"lang": "en"}
	for k, v := range in.Head.HTMLAttrs {
		htmlAttrs[k] = v
	}

	renderMeta := in.RenderMeta
	if renderMeta == nil {
		renderMeta = map[string]any{}
	}

	data := DocumentData{
		HTMLAttrs:  template.HTMLAttr(renderAttrs(htmlAttrs)),
		BodyAttrs:  template.HTMLAttr(renderAttrs(in.Head.BodyAttrs)),
		Title:      title,
		Head:       template.HTML(headHTML(in)),
		Body:       template.HTML(bodyHTML(in, string(routeJSON))),
		SiteData:   in.SiteData,
		RenderMeta: renderMeta,
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>")
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: document template for %s: %w", ErrRender, in.RouteInfo.Path, err)
	}
	return sb.String(), nil
}

func headHTML(in DocumentInput) string {
	var b strings.Builder

	writeTags(&b, in.Head.Base)
	writeTags(&b, in.Head.Meta)
	for _, script := range in.Scripts {
		fmt.Fprintf(&b, `<link rel="preload" as="script" href="%s" />`, assetURL(in.PublicPath, script))
	}
	for _, sheet := range in.Stylesheets {
		fmt.Fprintf(&b, `<link rel="preload" as="style" href="%s" />`, assetURL(in.PublicPath, sheet))
	}
	for _, sheet := range in.Stylesheets {
		fmt.Fprintf(&b, `<link rel="stylesheet" href="%s" />`, assetURL(in.PublicPath, sheet))
	}
	writeTags(&b, in.Head.Link)
	writeTags(&b, in.Head.Noscript)
	writeTags(&b, in.Head.Script)
	writeTags(&b, in.Head.Style)

	return b.String()
}

func bodyHTML(in DocumentInput, routeJSON string) string {
	var b strings.Builder

	b.WriteString(`<div id="root">`)
	b.WriteString(in.AppHTML)
	b.WriteString(`</div>`)
	b.WriteString(`<script type="text/javascript">window.__routeInfo = `)
	b.WriteString(EscapeScriptJSON(routeJSON))
	b.WriteString(`;</script>`)
	for _, script := range in.Scripts {
		fmt.Fprintf(&b, `<script defer type="text/javascript" src="%s"></script>`, assetURL(in.PublicPath, script))
	}

	return b.String()
}

func writeTags(b *strings.Builder, tags []string) {
	for _, tag := range tags {
		b.WriteString(tag)
	}
}

func assetURL(publicPath, file string) string {
	return html.EscapeString(publicPath + strings.TrimPrefix(file, "/"))
}

func renderAttrs(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, html.EscapeString(attrs[k])))
	}
	return strings.Join(parts, " ")
}
