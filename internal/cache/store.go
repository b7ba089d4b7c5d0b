package cache

import (
	"bytes"
	"context"
	"io"
)

// SequenceStore is the interface used by the engine.
// Implemented by the disk/memory filesystem store, memory map store,
// Redis store and S3 store.
//
// Get reports (nil, false, nil) for a missing key; errors are reserved for
// I/O failures.
type SequenceStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// EntryWriter streams a single entry. Nothing is visible under the key
// until Commit returns nil; Abort discards whatever was written.
type EntryWriter interface {
	io.Writer
	Commit() error
	Abort() error
}

// StreamingStore is implemented by stores that can persist an entry
// without holding it in memory.
type StreamingStore interface {
	SequenceStore
	Create(ctx context.Context, key string) (EntryWriter, error)
}

// CreateEntry opens a writer for key. Stores without streaming support get a
// buffered writer that calls Set on Commit.
func CreateEntry(ctx context.Context, store SequenceStore, key string) (EntryWriter, error) {
	if s, ok := store.(StreamingStore); ok {
		return s.Create(ctx, key)
	}
	return &bufferedEntry{ctx: ctx, store: store, key: key}, nil
}

type bufferedEntry struct {
	ctx   context.Context
	store SequenceStore
	key   string
	buf   bytes.Buffer
	done  bool
}

func (b *bufferedEntry) Write(p []byte) (int, error) {
	if b.done {
		return 0, io.ErrClosedPipe
	}
	return b.buf.Write(p)
}

func (b *bufferedEntry) Commit() error {
	if b.done {
		return io.ErrClosedPipe
	}
	b.done = true
	return b.store.Set(b.ctx, b.key, b.buf.Bytes())
}

func (b *bufferedEntry) Abort() error {
	b.done = true
	b.buf.Reset()
	return nil
}
