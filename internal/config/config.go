// Package config loads export configuration from a YAML file.
//
// The file is named by the PRERENDER_CONFIG environment variable or passed
// explicitly. Workers receive the same path in their dispatch and reload it,
// so parent and workers always agree on settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the config file when no path is given.
const EnvConfig = "PRERENDER_CONFIG"

type Config struct {
	// PublicPath prefixes asset URLs and sitemap locations. Defaults to
	// SiteRoot + "/" when a site root is set, "/" otherwise.
	PublicPath string `yaml:"public_path"`

	// SiteRoot is the absolute origin of the deployed site. Root-relative
	// links are rewritten against it and sitemap.xml is only written when it
	// is set.
	SiteRoot string `yaml:"site_root"`

	// OutputFileRate caps concurrent data fetches, artifact writes and page
	// renders. Zero or a non-numeric value means the built-in default.
	OutputFileRate Rate `yaml:"output_file_rate"`

	// Workers overrides the number of worker processes (default: CPU count).
	Workers int `yaml:"workers"`

	// Compress writes a zstd copy next to every shared data artifact.
	Compress bool `yaml:"compress"`

	// Title is the document title used when a page sets none.
	Title string `yaml:"title"`

	Paths PathsConfig `yaml:"paths"`
}

type PathsConfig struct {
	Dist        string `yaml:"dist"`
	StaticData  string `yaml:"static_data"`
	ClientStats string `yaml:"client_stats"`
}

// Rate is a concurrency limit that tolerates junk: anything that does not
// parse as a number decodes to 0.
type Rate int

func (r *Rate) UnmarshalYAML(value *yaml.Node) error {
	*r = ParseRate(value.Value)
	return nil
}

// ParseRate converts s to a Rate, returning 0 when s is not a number.
func ParseRate(s string) Rate {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Rate(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Rate(f)
	}
	return 0
}

func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Dist:        "dist",
			StaticData:  "dist/staticData",
			ClientStats: "dist/client-stats.json",
		},
	}
}

// Load reads the file named by PRERENDER_CONFIG, or returns the defaults
// when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		cfg := Default()
		cfg.resolve()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.expandVariables()
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) resolve() {
	c.SiteRoot = strings.TrimRight(c.SiteRoot, "/")

	if c.PublicPath == "" {
		c.PublicPath = c.SiteRoot + "/"
	}
	if !strings.HasSuffix(c.PublicPath, "/") {
		c.PublicPath += "/"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Paths.Dist == "" {
		errs = append(errs, errors.New("paths.dist is required"))
	}
	if c.Paths.StaticData == "" {
		errs = append(errs, errors.New("paths.static_data is required"))
	}

	return errors.Join(errs...)
}

// OutputRate returns the configured rate, or fallback when none is set.
func (c *Config) OutputRate(fallback int) int {
	if c.OutputFileRate > 0 {
		return int(c.OutputFileRate)
	}
	return fallback
}

// expandVariables expands ${VAR} and ${VAR:-default} in paths.
func (c *Config) expandVariables() {
	c.Paths.Dist = expandVars(c.Paths.Dist)
	c.Paths.StaticData = expandVars(c.Paths.StaticData)
	c.Paths.ClientStats = expandVars(c.Paths.ClientStats)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
