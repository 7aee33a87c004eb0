package storage

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"reduction.dev/linedup/util/ds"
)

type MemoryFilesystem struct {
	files      *ds.LockingMap[string, []byte]
	workingDir string
}

const memoryProtocol = "memory://"

func NewMemoryFilesystem() *MemoryFilesystem {
	return &MemoryFilesystem{
		files:      ds.NewLockingMap[string, []byte](),
		workingDir: "/",
	}
}

func (fs *MemoryFilesystem) New(path string) File {
	return &MemoryFile{
		path:     fs.normalizePath(path),
		fs:       fs,
		writer:   &bytes.Buffer{},
		fileMode: FILE_MODE_WRITE,
		mu:       &sync.Mutex{},
	}
}

func (fs *MemoryFilesystem) Open(path string) File {
	return &MemoryFile{
		path:     fs.normalizePath(path),
		fs:       fs,
		fileMode: FILE_MODE_READ,
		mu:       &sync.Mutex{},
	}
}

func (fs *MemoryFilesystem) List(prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		// Snapshot the matching paths so that deleting while iterating is safe.
		var paths []string
		for path := range fs.files.All() {
			if filepath.Dir(path) == filepath.Clean(fs.workingDir) &&
				strings.HasPrefix(filepath.Base(path), prefix) {
				paths = append(paths, path)
			}
		}
		slices.Sort(paths)
		for _, p := range paths {
			if !yield(Join(memoryProtocol, p), nil) {
				return
			}
		}
	}
}

func (fs *MemoryFilesystem) Exists(path string) bool {
	_, ok := fs.files.Get(fs.normalizePath(path))
	return ok
}

// Len returns the number of saved files across all working directories.
func (fs *MemoryFilesystem) Len() int {
	return fs.files.Size()
}

func (fs *MemoryFilesystem) normalizePath(path string) string {
	path = strings.TrimPrefix(path, memoryProtocol)
	if !filepath.IsAbs(path) {
		path = filepath.Join(fs.workingDir, path)
	}
	return path
}

func (fs *MemoryFilesystem) WithWorkingDir(path string) *MemoryFilesystem {
	newFS := NewMemoryFilesystem()
	newFS.files = fs.files
	if filepath.IsAbs(path) {
		newFS.workingDir = path
	} else {
		newFS.workingDir = filepath.Join(fs.workingDir, path)
	}
	return newFS
}

var _ FileSystem = (*MemoryFilesystem)(nil)

type MemoryFile struct {
	path     string
	fs       *MemoryFilesystem
	mu       *sync.Mutex
	writer   *bytes.Buffer
	size     int64
	fileMode FileMode
}

func (m *MemoryFile) NewReader() (io.ReadCloser, error) {
	if m.fileMode == FILE_MODE_WRITE {
		panic("tried to read a file before save")
	}
	data, ok := m.fs.files.Get(m.path)
	if !ok {
		return nil, fmt.Errorf("no memory file named %s: %w", m.path, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryFile) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fileMode == FILE_MODE_READ {
		panic("tried to write to a read only file")
	}
	n, err = m.writer.Write(p)
	m.size += int64(n)
	return n, err
}

func (m *MemoryFile) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fileMode == FILE_MODE_WRITE {
		m.writer.Reset()
		return nil
	}
	m.fs.files.Delete(m.path)
	return nil
}

func (m *MemoryFile) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fileMode == FILE_MODE_READ {
		panic("tried to save a read only file")
	}
	m.fileMode = FILE_MODE_READ
	m.fs.files.Put(m.path, m.writer.Bytes())
	m.writer = nil
	return nil
}

func (m *MemoryFile) Size() int64 {
	return m.size
}

func (m *MemoryFile) Name() string {
	return filepath.Base(m.path)
}

func (m *MemoryFile) URI() string {
	return Join(memoryProtocol, m.path)
}

func (m *MemoryFile) CreateDeleteFunc() func() error {
	files := m.fs.files
	path := m.path
	return func() error {
		files.Delete(path)
		return nil
	}
}

var _ File = (*MemoryFile)(nil)
