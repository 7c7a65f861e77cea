package stream

import (
	"context"
	"errors"
	"os"

	apperrors "github.com/agbru/mpsearch/internal/errors"
)

// FileSource is a Source backed by a regular file.
type FileSource struct {
	path string
	size int64
}

// NewFileSource stats path and returns a FileSource. A missing path or a
// directory yields apperrors.StreamNotFoundError.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.StreamNotFoundError{Path: path, Cause: err}
	}
	if info.IsDir() {
		return nil, apperrors.StreamNotFoundError{Path: path, Cause: errors.New("is a directory")}
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

// Name returns the file path.
func (f *FileSource) Name() string { return f.path }

// Size returns the file size captured at construction.
func (f *FileSource) Size() int64 { return f.size }

// Open opens a new read-only handle and hints sequential access to the kernel.
func (f *FileSource) Open(context.Context) (Stream, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	adviseSequential(file)
	return file, nil
}
