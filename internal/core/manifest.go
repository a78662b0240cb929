package core

import (
	"encoding/json"
	"path"
)

// ClientStats is the bundler's chunk map, read once by the parent and passed
// to every worker. Entrypoints are chunk names flushed on every page; Chunks
// maps a chunk name to the files it consists of.
type ClientStats struct {
	Entrypoints []string            `json:"entrypoints,omitempty"`
	Chunks      map[string][]string `json:"chunks,omitempty"`
}

func ParseClientStats(data []byte) (*ClientStats, error) {
	var s ClientStats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FlushChunks resolves the chunks touched while rendering a page into the
// script and stylesheet files the page must load. Entry chunks come first,
// then reported chunks in report order; files are deduplicated and unknown
// chunk names are ignored.
func FlushChunks(stats *ClientStats, chunkNames []string) (scripts, stylesheets []string) {
	if stats == nil {
		return nil, nil
	}

	names := make([]string, 0, len(stats.Entrypoints)+len(chunkNames))
	names = append(names, stats.Entrypoints...)
	names = append(names, chunkNames...)

	seen := make(map[string]bool)
	for _, name := range names {
		for _, file := range stats.Chunks[name] {
			if seen[file] {
				continue
			}
			seen[file] = true

			switch path.Ext(file) {
			case ".js", ".mjs":
				scripts = append(scripts, file)
			case ".css":
				stylesheets = append(stylesheets, file)
			}
		}
	}

	return scripts, stylesheets
}
