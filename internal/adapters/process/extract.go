package process

import (
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// ExtractRuntime copies a compiled render server out of fsys (usually an
// embed.FS in the site binary) into a temp dir so it can be executed. The
// returned cleanup removes it.
func ExtractRuntime(fsys iofs.FS, runtimePath string) (string, func(), error) {
	data, err := iofs.ReadFile(fsys, runtimePath)
	if err != nil {
		return "", nil, fmt.Errorf("embedded runtime not found at %s: %w", runtimePath, err)
	}

	tempDir, err := os.MkdirTemp("", "prerender-runtime-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	executablePath := filepath.Join(tempDir, "prerender-renderer")
	if runtime.GOOS == "windows" {
		executablePath += ".exe"
	}

	if err := os.WriteFile(executablePath, data, 0755); err != nil {
		os.RemoveAll(tempDir)
		return "", nil, fmt.Errorf("failed to write runtime executable: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(tempDir)
	}

	return executablePath, cleanup, nil
}

func HasRuntime(fsys iofs.FS, runtimePath string) bool {
	_, err := iofs.Stat(fsys, runtimePath)
	return err == nil
}
