package cache

import (
	"context"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jmgilman/go/errors"
)

const (
	// EntryExt is appended to keys by file-based stores.
	EntryExt = ".txt"

	partialPrefix = ".partial-"
)

// FSStore keeps one file per entry in a directory of a billy filesystem.
// Writes land in a temp file that is renamed into place on commit, so a
// crash never leaves a truncated entry under its final name.
type FSStore struct {
	bfs billy.Filesystem
	dir string
}

// NewFSStore creates a store rooted at dir inside bfs, creating dir if needed.
func NewFSStore(bfs billy.Filesystem, dir string) (*FSStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := bfs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeDatabase, "create store directory %q", dir)
	}
	return &FSStore{bfs: bfs, dir: dir}, nil
}

// NewDiskStore creates a store backed by the local directory dir.
func NewDiskStore(dir string) (*FSStore, error) {
	return NewFSStore(osfs.New(dir), ".")
}

// NewMemFSStore creates a store backed by an in-memory filesystem, with
// entries under DefaultDir.
func NewMemFSStore() *FSStore {
	s, err := NewFSStore(memfs.New(), DefaultDir)
	if err != nil {
		// memfs cannot fail to create its root
		panic(err)
	}
	return s
}

// Unwrap returns the underlying billy filesystem.
func (s *FSStore) Unwrap() billy.Filesystem {
	return s.bfs
}

// Dir returns the entry directory inside the filesystem.
func (s *FSStore) Dir() string {
	return s.dir
}

// Path returns the file path of key inside the filesystem.
func (s *FSStore) Path(key string) string {
	return s.bfs.Join(s.dir, key+EntryExt)
}

// Exists reports whether key has an entry.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.bfs.Stat(s.Path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, errors.CodeDatabase, "stat entry %q", key)
}

// Get reads the entry for key.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	f, err := s.bfs.Open(s.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, errors.CodeDatabase, "open entry %q", key)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, errors.Wrapf(err, errors.CodeDatabase, "read entry %q", key)
	}
	return data, true, nil
}

// Set writes value under key atomically.
func (s *FSStore) Set(ctx context.Context, key string, value []byte) error {
	w, err := s.Create(ctx, key)
	if err != nil {
		return err
	}
	if _, err := w.Write(value); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Commit()
}

// Create opens a temp file that becomes the entry for key on Commit.
func (s *FSStore) Create(ctx context.Context, key string) (EntryWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := util.TempFile(s.bfs, s.dir, partialPrefix)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDatabase, "create temp file for %q", key)
	}
	return &fsEntry{store: s, file: f, key: key}, nil
}

type fsEntry struct {
	store  *FSStore
	file   billy.File
	key    string
	closed bool
}

func (e *fsEntry) Write(p []byte) (int, error) {
	n, err := e.file.Write(p)
	if err != nil {
		return n, errors.Wrapf(err, errors.CodeDatabase, "write entry %q", e.key)
	}
	return n, nil
}

func (e *fsEntry) Commit() error {
	if e.closed {
		return errors.Newf(errors.CodeInternal, "entry %q already closed", e.key)
	}
	e.closed = true

	tmp := e.file.Name()
	if err := e.file.Close(); err != nil {
		_ = e.store.bfs.Remove(tmp)
		return errors.Wrapf(err, errors.CodeDatabase, "close entry %q", e.key)
	}
	if err := e.store.bfs.Rename(tmp, e.store.Path(e.key)); err != nil {
		_ = e.store.bfs.Remove(tmp)
		return errors.Wrapf(err, errors.CodeDatabase, "publish entry %q", e.key)
	}
	return nil
}

func (e *fsEntry) Abort() error {
	if e.closed {
		return nil
	}
	e.closed = true

	tmp := e.file.Name()
	_ = e.file.Close()
	if err := e.store.bfs.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.CodeDatabase, "discard entry %q", e.key)
	}
	return nil
}
