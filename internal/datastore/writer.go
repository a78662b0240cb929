package datastore

import (
	"context"
	"fmt"
	iofs "io/fs"

	"github.com/klauspost/compress/zstd"

	"github.com/3-lines-studio/prerender/internal/core"
)

// FileSystem is the part of the filesystem the writer needs.
type FileSystem interface {
	WriteFile(path string, data []byte, perm iofs.FileMode) error
	MkdirAll(path string, perm iofs.FileMode) error
}

// Writer persists artifacts to {dir}/{hash}.json. With compression on, a
// zstd copy is written next to each file for hosts that serve precompressed
// assets.
type Writer struct {
	fs  FileSystem
	dir string
	enc *zstd.Encoder
}

type WriterOption func(*Writer) error

// WithCompression adds a {hash}.json.zst copy of every artifact.
func WithCompression() WriterOption {
	return func(w *Writer) error {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return err
		}
		w.enc = enc
		return nil
	}
}

func NewWriter(fs FileSystem, dir string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{fs: fs, dir: dir}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, fmt.Errorf("datastore writer: %w", err)
		}
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", core.ErrWrite, dir, err)
	}
	return w, nil
}

// Write stores one artifact. Empty content is written as {}.
func (w *Writer) Write(ctx context.Context, a core.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := a.JSON
	if len(data) == 0 {
		data = []byte("{}")
	}

	path := core.ArtifactPath(w.dir, a.Hash)
	if err := w.fs.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrWrite, path, err)
	}

	if w.enc != nil {
		compressed := w.enc.EncodeAll(data, make([]byte, 0, len(data)))
		if err := w.fs.WriteFile(path+".zst", compressed, 0644); err != nil {
			return fmt.Errorf("%w: %s.zst: %w", core.ErrWrite, path, err)
		}
	}

	return nil
}

// Close releases the compressor, if any.
func (w *Writer) Close() error {
	if w.enc != nil {
		return w.enc.Close()
	}
	return nil
}
