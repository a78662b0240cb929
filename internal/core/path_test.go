package core

import (
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"about", "/about"},
		{"/about/", "/about"},
		{"/blog/post//", "/blog/post"},
		{"//", "/"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRoutePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/", false},
		{"/blog/post", false},
		{"", true},
		{"blog", true},
		{"/a?b=1", true},
		{"/a#top", true},
		{"/../etc", true},
		{"/blog/*", true},
	}

	for _, tt := range tests {
		err := ValidateRoutePath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRoutePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func TestRouteOutputPaths(t *testing.T) {
	dist := filepath.Join("out", "dist")

	tests := []struct {
		name  string
		route Route
		want  OutputPaths
	}{
		{
			name:  "root",
			route: Route{Path: "/"},
			want: OutputPaths{
				HTML:      filepath.Join(dist, "index.html"),
				RouteInfo: filepath.Join(dist, "routeInfo.json"),
			},
		},
		{
			name:  "nested",
			route: Route{Path: "/blog/post"},
			want: OutputPaths{
				HTML:      filepath.Join(dist, "blog", "post", "index.html"),
				RouteInfo: filepath.Join(dist, "blog", "post", "routeInfo.json"),
			},
		},
		{
			name:  "not found page lands at the root",
			route: Route{Path: "/404", Is404: true},
			want: OutputPaths{
				HTML:      filepath.Join(dist, "404.html"),
				RouteInfo: filepath.Join(dist, "404", "routeInfo.json"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RouteOutputPaths(dist, tt.route); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestShortHash(t *testing.T) {
	a := ShortHash([]byte(`{"a":1}`))
	b := ShortHash([]byte(`{"a":1}`))
	c := ShortHash([]byte(`{"a":2}`))

	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
	if a != b {
		t.Errorf("same content hashed differently: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different content produced the same hash %s", a)
	}
}
