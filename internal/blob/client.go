// Package blob stores media objects in a bucket: a local directory, an
// object-storage REST endpoint or a remote directory over SFTP.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/id"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
)

// Object describes a stored blob.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Backend is a bucket implementation.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Put writes data under key, replacing nothing: keys are unique by construction.
	Put(ctx context.Context, key, contentType string, data []byte) error
	// Delete removes key. Deleting a missing object succeeds.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key.
	URL(key string) string
	// KeyFromURL is the inverse of URL.
	KeyFromURL(url string) (string, bool)
}

// Client uploads and deletes blobs through a Backend.
type Client struct {
	backend Backend
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// NewClient creates a client. A zero timeout leaves operations bounded only by
// the caller's context. m may be nil.
func NewClient(backend Backend, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend:  backend,
		timeout:  timeout,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		newToken: id.ObjectToken,
	}
}

// Backend returns the underlying backend name.
func (c *Client) Backend() string {
	return c.backend.Name()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Upload stores data under a fresh key derived from filename.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data []byte) (Object, error) {
	token, err := c.newToken()
	if err != nil {
		return Object{}, &StorageError{Op: "upload", Kind: KindUnknown, Err: fmt.Errorf("generate key: %w", err)}
	}
	return c.Put(ctx, NewKey(c.now(), token, filename), contentType, data)
}

// Put stores data under an explicit key, e.g. a thumbnail next to its original.
func (c *Client) Put(ctx context.Context, key, contentType string, data []byte) (Object, error) {
	if !validKey(key) {
		return Object{}, &StorageError{Op: "upload", Kind: KindUnknown, Key: key, Err: fmt.Errorf("invalid key")}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.backend.Put(ctx, key, contentType, data)
	c.metrics.ObserveStorage(c.backend.Name(), "upload", time.Since(start), err)
	if err != nil {
		return Object{}, wrapError("upload", key, err)
	}

	c.logger.Debug("blob uploaded",
		slog.String("backend", c.backend.Name()),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)
	return Object{
		Key:         key,
		URL:         c.backend.URL(key),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Delete removes the object stored under key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return &StorageError{Op: "delete", Kind: KindUnknown, Key: key, Err: fmt.Errorf("invalid key")}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.backend.Delete(ctx, key)
	c.metrics.ObserveStorage(c.backend.Name(), "delete", time.Since(start), err)
	if err != nil {
		return wrapError("delete", key, err)
	}
	return nil
}

// DeleteURL removes the object behind a public URL.
func (c *Client) DeleteURL(ctx context.Context, url string) error {
	key, ok := c.backend.KeyFromURL(url)
	if !ok {
		return &StorageError{Op: "delete", Kind: KindNotFound, Key: url, Err: fmt.Errorf("url does not belong to this bucket")}
	}
	return c.Delete(ctx, key)
}

// URL returns the public URL for key.
func (c *Client) URL(key string) string {
	return c.backend.URL(key)
}

// KeyFromURL returns the key behind a public URL of this bucket.
func (c *Client) KeyFromURL(url string) (string, bool) {
	return c.backend.KeyFromURL(url)
}
