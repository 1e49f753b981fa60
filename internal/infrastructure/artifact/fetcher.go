// Package artifact provides named-artifact retrieval for pretrained model
// checkpoints. Fetchers resolve a checkpoint name to its byte stream;
// implementations cover local directories, MinIO object storage, and an
// in-memory store for tests.
package artifact

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/turtacn/molgnn/pkg/errors"
)

// checkpointExt is appended to artifact names when resolving files.
const checkpointExt = ".ckpt"

// ---------------------------------------------------------------------------
// Local directory fetcher
// ---------------------------------------------------------------------------

// LocalDirFetcher serves checkpoints from a directory, one file per
// artifact: <dir>/<name>.ckpt.
type LocalDirFetcher struct {
	dir string
}

// NewLocalDirFetcher creates a fetcher rooted at dir.
func NewLocalDirFetcher(dir string) *LocalDirFetcher {
	return &LocalDirFetcher{dir: dir}
}

// Fetch opens the named checkpoint file.
func (f *LocalDirFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	path := filepath.Join(f.dir, name+checkpointExt)
	rc, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeArtifactNotFound,
				"checkpoint %q not found at %s", name, path)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"opening checkpoint %q", name)
	}
	return rc, nil
}

// Put writes checkpoint bytes for the named artifact, creating the directory
// if needed.
func (f *LocalDirFetcher) Put(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrCodeArtifactFetch, "creating %s", f.dir)
	}
	path := filepath.Join(f.dir, name+checkpointExt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrCodeArtifactFetch, "writing checkpoint %q", name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory fetcher
// ---------------------------------------------------------------------------

// MemoryFetcher holds checkpoints in memory. Safe for concurrent use.
type MemoryFetcher struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryFetcher creates an empty in-memory store.
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{blobs: make(map[string][]byte)}
}

// Put stores checkpoint bytes under the given name.
func (f *MemoryFetcher) Put(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[name] = append([]byte(nil), data...)
}

// Fetch returns the stored bytes for the named checkpoint.
func (f *MemoryFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	f.mu.RLock()
	data, ok := f.blobs[name]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeArtifactNotFound,
			"checkpoint %q not found in memory store", name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
