package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

func NormalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func ValidateRoutePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with /")
	}

	if strings.Contains(path, "?") {
		return fmt.Errorf("path cannot contain query string")
	}

	if strings.Contains(path, "#") {
		return fmt.Errorf("path cannot contain fragment")
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("path cannot contain parent directory references")
	}

	if strings.Contains(path, "*") {
		return fmt.Errorf("path cannot contain wildcards")
	}

	return nil
}

// OutputPaths is where a route's page and companion routeInfo.json land.
type OutputPaths struct {
	HTML      string
	RouteInfo string
}

// RouteOutputPaths resolves a route's files under distDir. The not-found page
// goes to distDir/404.html regardless of its path; its routeInfo.json still
// sits in the route's own directory.
func RouteOutputPaths(distDir string, route Route) OutputPaths {
	dir := filepath.Join(distDir, filepath.FromSlash(strings.TrimPrefix(route.Path, "/")))

	htmlPath := filepath.Join(dir, "index.html")
	if route.Is404 {
		htmlPath = filepath.Join(distDir, "404.html")
	}

	return OutputPaths{
		HTML:      htmlPath,
		RouteInfo: filepath.Join(dir, "routeInfo.json"),
	}
}

// ArtifactPath is the location of a shared-data artifact.
func ArtifactPath(staticDataDir, hash string) string {
	return filepath.Join(staticDataDir, hash+".json")
}
