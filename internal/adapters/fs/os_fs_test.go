package fs

import (
	"path/filepath"
	"testing"
)

func TestOSFileSystemWriteCreatesParents(t *testing.T) {
	fsys := NewOSFileSystem()
	path := filepath.Join(t.TempDir(), "blog", "post", "index.html")

	if err := fsys.WriteFile(path, []byte("<html></html>"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !fsys.FileExists(path) {
		t.Fatal("expected file to exist")
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestOSFileSystemMissing(t *testing.T) {
	fsys := NewOSFileSystem()
	if fsys.FileExists(filepath.Join(t.TempDir(), "missing")) {
		t.Error("missing file reported as existing")
	}
}
