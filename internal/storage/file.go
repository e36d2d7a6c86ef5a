package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrNotFound is returned by Read when the named file does not exist.
var ErrNotFound = errors.New("log file not found")

const lockRetryDelay = 5 * time.Millisecond

// FileStore appends lines to files inside a single log directory.
// Each Append holds an exclusive advisory lock on its target for the
// duration of one write; reads are not synchronized with writers.
type FileStore struct {
	dir      string
	filePerm os.FileMode
}

// NewFileStore ensures dir exists (creating parents with dirPerm) and returns
// a store whose files are created lazily with filePerm.
func NewFileStore(dir string, dirPerm, filePerm os.FileMode) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: empty log directory")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &FileStore{dir: dir, filePerm: filePerm}, nil
}

// Dir returns the log directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the full path of a file name inside the log directory.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Append writes line to the named file in one write call while holding an
// exclusive lock on it. The file is created if needed. Taking the lock
// creates the file before the line lands, so a new file is briefly empty;
// Read reports such a file as ErrNotFound.
func (s *FileStore) Append(ctx context.Context, name string, line []byte) error {
	path := s.Path(name)

	lock := flock.New(path,
		flock.SetFlag(os.O_CREATE|os.O_WRONLY),
		flock.SetPermissions(s.filePerm),
	)
	defer lock.Close()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", name)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, s.filePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read returns the whole content of the named file. A missing or still
// empty file is ErrNotFound: every Append writes a non-empty line.
func (s *FileStore) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}
