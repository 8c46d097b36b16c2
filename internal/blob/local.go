package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// LocalBackend stores objects in a directory on disk. The API serves the
// directory under the public base URL.
// Thread-safe for concurrent operations.
type LocalBackend struct {
	root         string
	baseURL      string
	minFreeBytes uint64
	freeSpace    func(path string) (uint64, error)
	mu           sync.RWMutex
}

// NewLocalBackend creates the root directory if needed. Writes are refused
// when they would leave less than minFreeBytes available on the volume.
func NewLocalBackend(root, baseURL string, minFreeBytes uint64) (*LocalBackend, error) {
	if root == "" {
		return nil, errors.New("local storage path cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalBackend{
		root:         root,
		baseURL:      baseURL,
		minFreeBytes: minFreeBytes,
		freeSpace:    availableBytes,
	}, nil
}

// Name implements Backend.
func (b *LocalBackend) Name() string {
	return "local"
}

// Root returns the directory holding the objects.
func (b *LocalBackend) Root() string {
	return b.root
}

// Path returns the filesystem path for key.
func (b *LocalBackend) Path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

// Put implements Backend. The file is written to a temp name and renamed so
// readers never observe a partial object.
func (b *LocalBackend) Put(ctx context.Context, key, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("object data cannot be empty")
	}

	if b.minFreeBytes > 0 {
		free, err := b.freeSpace(b.root)
		if err != nil {
			return fmt.Errorf("check free space: %w", err)
		}
		if free < uint64(len(data)) || free-uint64(len(data)) < b.minFreeBytes {
			return fmt.Errorf("%w: %d bytes free, %d reserved", errQuota, free, b.minFreeBytes)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename object: %w", err)
	}
	return nil
}

// Get reads an object.
func (b *LocalBackend) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("invalid key %q", key)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(b.Path(key))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether an object is stored under key.
func (b *LocalBackend) Exists(key string) bool {
	if !validKey(key) {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	_, err := os.Stat(b.Path(key))
	return err == nil
}

// Delete implements Backend.
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Already deleted, not an error.
			return nil
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL implements Backend.
func (b *LocalBackend) URL(key string) string {
	return joinURL(b.baseURL, key)
}

// KeyFromURL implements Backend.
func (b *LocalBackend) KeyFromURL(url string) (string, bool) {
	return keyFromURL(b.baseURL, url)
}
