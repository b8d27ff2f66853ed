package organizer

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ByteWriter persists bytes at a path, creating parent directories.
type ByteWriter interface {
	Write(path string, data []byte) error
}

// FsWriter is a ByteWriter backed by an afero filesystem.
type FsWriter struct {
	fs afero.Fs
}

// NewFsWriter creates a writer over fs.
func NewFsWriter(fs afero.Fs) *FsWriter {
	return &FsWriter{fs: fs}
}

// NewOsWriter creates a writer over the real filesystem.
func NewOsWriter() *FsWriter {
	return NewFsWriter(afero.NewOsFs())
}

// Write writes data to path.
func (w *FsWriter) Write(path string, data []byte) error {
	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := afero.WriteFile(w.fs, path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Fs returns the underlying filesystem.
func (w *FsWriter) Fs() afero.Fs {
	return w.fs
}
