// Command doctor checks an export setup before running it: the config file
// parses and validates, and the client stats, when present, parse.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/3-lines-studio/prerender/internal/adapters/cli"
	"github.com/3-lines-studio/prerender/internal/adapters/fs"
	"github.com/3-lines-studio/prerender/internal/config"
	"github.com/3-lines-studio/prerender/internal/core"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to prerender.yaml (default: $PRERENDER_CONFIG)")
	pflag.Parse()

	output := cli.NewOutput()
	output.PrintHeader("Prerender Doctor")

	if err := check(output, fs.NewOSFileSystem(), *configPath); err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
	output.PrintDone("Ready to export")
}

func check(output *cli.Output, fsys fs.FileSystem, path string) error {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return err
	}
	output.PrintSuccess("Config loaded")
	output.PrintStep("Output:      %s", cfg.Paths.Dist)
	output.PrintStep("Shared data: %s", cfg.Paths.StaticData)
	output.PrintStep("Public path: %s", cfg.PublicPath)

	if cfg.SiteRoot == "" {
		output.PrintWarning("No site_root set, sitemap.xml will not be written")
	}

	if !fsys.FileExists(cfg.Paths.ClientStats) {
		output.PrintWarning("No client stats at %s, pages will not load any chunks", cfg.Paths.ClientStats)
		return nil
	}

	data, err := fsys.ReadFile(cfg.Paths.ClientStats)
	if err != nil {
		return fmt.Errorf("read client stats: %w", err)
	}
	stats, err := core.ParseClientStats(data)
	if err != nil {
		return fmt.Errorf("parse client stats %s: %w", cfg.Paths.ClientStats, err)
	}
	output.PrintSuccess("Client stats: %d chunks, %d entrypoints", len(stats.Chunks), len(stats.Entrypoints))
	return nil
}
