package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// ErrListUnsupported is returned by Client.List for backends that cannot enumerate objects.
var ErrListUnsupported = errors.New("backend cannot list objects")

// Listing is one stored object found by a scan.
type Listing struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Lister is implemented by backends that can enumerate their objects.
type Lister interface {
	List(ctx context.Context) ([]Listing, error)
}

// List enumerates every object in the bucket.
func (c *Client) List(ctx context.Context) ([]Listing, error) {
	lister, ok := c.backend.(Lister)
	if !ok {
		return nil, ErrListUnsupported
	}

	start := time.Now()
	items, err := lister.List(ctx)
	c.metrics.ObserveStorage(c.backend.Name(), "list", time.Since(start), err)
	if err != nil {
		return nil, wrapError("list", "", err)
	}
	return items, nil
}

// isTempName reports whether name is an in-progress upload.
func isTempName(name string) bool {
	return strings.HasPrefix(name, ".upload-")
}

// List implements Lister.
func (b *LocalBackend) List(ctx context.Context) ([]Listing, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var items []Listing
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || isTempName(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		items = append(items, Listing{
			Key:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk storage directory: %w", err)
	}
	return items, nil
}

// List implements Lister.
func (b *SFTPBackend) List(ctx context.Context) ([]Listing, error) {
	client, closeFn, err := b.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn() //nolint:errcheck // connection teardown

	root := b.basePath
	if root == "" {
		root = "."
	}

	var items []Listing
	walker := client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if errors.Is(err, fs.ErrNotExist) && walker.Path() == root {
				return nil, nil
			}
			return nil, fmt.Errorf("sftp: walk: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := walker.Stat()
		if info.IsDir() {
			continue
		}
		key := strings.TrimPrefix(strings.TrimPrefix(walker.Path(), root), "/")
		items = append(items, Listing{
			Key:     key,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return items, nil
}
