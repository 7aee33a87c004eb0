package storage

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

type LocalFilesystem struct {
	Dir string
}

func NewLocalFilesystem(dir string) (*LocalFilesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating local filesystem: %w", err)
	}
	return &LocalFilesystem{dir}, nil
}

func (fs *LocalFilesystem) New(path string) File {
	if filepath.IsAbs(path) {
		panic(fmt.Sprintf("creating a file with absolute path (%s) not supported", path))
	}
	return &DiskFile{
		name:     filepath.Base(path),
		dir:      filepath.Join(fs.Dir, filepath.Dir(path)),
		fileMode: FILE_MODE_WRITE,
	}
}

func (fs *LocalFilesystem) Open(path string) File {
	var dir string
	if filepath.IsAbs(path) {
		dir = filepath.Dir(path)
	} else {
		dir = filepath.Join(fs.Dir, filepath.Dir(path))
	}

	return &DiskFile{
		name:     filepath.Base(path),
		dir:      dir,
		fileMode: FILE_MODE_READ,
	}
}

func (fs *LocalFilesystem) List(prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		entries, err := os.ReadDir(fs.Dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			yield("", err)
			return
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			if !yield(filepath.Join(fs.Dir, e.Name()), nil) {
				return
			}
		}
	}
}

var _ FileSystem = (*LocalFilesystem)(nil)

// DiskFile writes to a temporary file in the target directory and renames it
// into place on Save so a partially written file is never visible by name.
type DiskFile struct {
	tmpFile  *os.File
	name     string
	dir      string
	fileMode FileMode
	size     int64
}

func (d *DiskFile) path() string {
	return filepath.Join(d.dir, d.name)
}

func (d *DiskFile) NewReader() (io.ReadCloser, error) {
	if d.fileMode == FILE_MODE_WRITE {
		panic("tried to read a file before save")
	}
	f, err := os.Open(d.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("opening %s: %w", d.path(), ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *DiskFile) Save() error {
	if d.fileMode == FILE_MODE_READ {
		panic("tried to save a read only file")
	}
	file, err := d.lazyTmpFile()
	if err != nil {
		return err
	}
	if err := file.Chmod(0o644); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", file.Name(), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", file.Name(), err)
	}
	if err := os.Rename(file.Name(), d.path()); err != nil {
		return err
	}
	d.tmpFile = nil
	d.fileMode = FILE_MODE_READ
	return nil
}

// Lazily create the tmp file
func (d *DiskFile) lazyTmpFile() (*os.File, error) {
	if d.tmpFile != nil {
		return d.tmpFile, nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(d.dir, "."+d.name+".*")
	if err != nil {
		return nil, err
	}
	d.tmpFile = f
	return f, nil
}

func (d *DiskFile) Write(b []byte) (n int, err error) {
	if d.fileMode == FILE_MODE_READ {
		panic("tried to write to a read only file")
	}
	file, err := d.lazyTmpFile()
	if err != nil {
		return 0, err
	}
	n, err = file.Write(b)
	d.size += int64(n)
	return n, err
}

// Delete removes a saved file. On a file that was never saved it discards the
// temporary file holding the partial contents.
func (d *DiskFile) Delete() error {
	if d.fileMode == FILE_MODE_WRITE {
		if d.tmpFile == nil {
			return nil
		}
		d.tmpFile.Close()
		err := os.Remove(d.tmpFile.Name())
		d.tmpFile = nil
		return err
	}
	return os.Remove(d.path())
}

func (d *DiskFile) Size() int64 {
	return d.size
}

func (d *DiskFile) Name() string {
	return d.name
}

func (d *DiskFile) URI() string {
	absPath, err := filepath.Abs(d.path())
	if err != nil {
		return d.path()
	}
	return absPath
}

func (d *DiskFile) CreateDeleteFunc() func() error {
	path := d.path()
	return func() error {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
}

var _ File = (*DiskFile)(nil)
