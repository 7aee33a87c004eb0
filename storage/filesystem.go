package storage

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
)

// FileSystem creates and opens write-once files in a storage location.
type FileSystem interface {
	New(name string) File
	Open(name string) File
	// List yields the URIs of saved files whose name starts with prefix.
	List(prefix string) iter.Seq2[string, error]
}

// A File is written once, saved, and after that only read or deleted.
type File interface {
	io.Writer
	Save() error
	NewReader() (io.ReadCloser, error)
	Name() string
	Delete() error
	URI() string
	Size() int64
	// CreateDeleteFunc returns a func that deletes the file without holding a
	// reference to the File itself. Used with runtime.AddCleanup.
	CreateDeleteFunc() func() error
}

type FileMode int

const FILE_MODE_READ = 0
const FILE_MODE_WRITE = 1

var ErrNotFound = errors.New("file not found")

// NewFileSystemFromLocation picks a FileSystem implementation by the scheme of
// the location: memory://, s3:// or a local directory path.
func NewFileSystemFromLocation(ctx context.Context, location string, s3Options S3Options) (FileSystem, error) {
	switch {
	case strings.HasPrefix(location, memoryProtocol):
		workingDir := strings.TrimPrefix(location, memoryProtocol)
		return NewMemoryFilesystem().WithWorkingDir(workingDir), nil
	case strings.HasPrefix(location, s3Protocol):
		return NewS3FileSystemFromURI(ctx, location, s3Options)
	default:
		return NewLocalFilesystem(location)
	}
}
