package env

import (
	"os"
	"strings"
)

const (
	// WorkerVar switches a binary built on prerender into worker mode.
	WorkerVar = "PRERENDER_WORKER"
	// StagingVar suppresses site-root link rewriting.
	StagingVar = "PRERENDER_STAGING"
)

func IsWorker() bool {
	return os.Getenv(WorkerVar) == "1"
}

func IsStaging() bool {
	return os.Getenv(StagingVar) == "1"
}

// WorkerEnviron returns base with worker mode switched on.
func WorkerEnviron(base []string) []string {
	environ := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, WorkerVar+"=") {
			continue
		}
		environ = append(environ, kv)
	}
	return append(environ, WorkerVar+"=1")
}
