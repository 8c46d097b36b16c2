package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4096

// HTTPBackend talks to an object-storage REST API compatible with Supabase
// Storage:
//
//	POST   {endpoint}/object/{bucket}/{key}      upload
//	DELETE {endpoint}/object/{bucket}            body {"prefixes":[key]}
//	GET    {endpoint}/object/public/{bucket}/{key}
type HTTPBackend struct {
	endpoint string
	bucket   string
	apiKey   string
	client   *http.Client
}

// NewHTTPBackend creates a REST backend. client may be nil.
func NewHTTPBackend(endpoint, bucket, apiKey string, client *http.Client) (*HTTPBackend, error) {
	if endpoint == "" || bucket == "" {
		return nil, errors.New("endpoint and bucket are required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		bucket:   bucket,
		apiKey:   apiKey,
		client:   client,
	}, nil
}

// Name implements Backend.
func (b *HTTPBackend) Name() string {
	return "http"
}

func (b *HTTPBackend) objectURL(key string) string {
	return b.endpoint + "/object/" + url.PathEscape(b.bucket) + "/" + escapeKey(key)
}

// escapeKey escapes each path segment of key.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (b *HTTPBackend) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("apikey", b.apiKey)
}

// Put implements Backend.
func (b *HTTPBackend) Put(ctx context.Context, key, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")

	resp, err := b.client.Do(req)
	if err != nil {
		return &StorageError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

// Delete implements Backend.
func (b *HTTPBackend) Delete(ctx context.Context, key string) error {
	body, err := json.Marshal(map[string][]string{"prefixes": {key}})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := b.endpoint + "/object/" + url.PathEscape(b.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return &StorageError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	// A missing object is already deleted.
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil
	}
	return checkResponse(resp)
}

// checkResponse maps non-2xx responses to storage errors.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))

	var kind ErrorKind
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		kind = KindAuth
	case resp.StatusCode == http.StatusRequestEntityTooLarge, resp.StatusCode == http.StatusInsufficientStorage:
		kind = KindQuota
	case resp.StatusCode == http.StatusNotFound:
		kind = KindNotFound
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		kind = KindNetwork
	default:
		kind = KindUnknown
	}
	return &StorageError{Kind: kind, Err: err}
}

// URL implements Backend.
func (b *HTTPBackend) URL(key string) string {
	return b.endpoint + "/object/public/" + url.PathEscape(b.bucket) + "/" + escapeKey(key)
}

// KeyFromURL implements Backend.
func (b *HTTPBackend) KeyFromURL(rawURL string) (string, bool) {
	key, ok := keyFromURL(b.endpoint+"/object/public/"+url.PathEscape(b.bucket), rawURL)
	if !ok {
		return "", false
	}
	unescaped, err := url.PathUnescape(key)
	if err != nil {
		return "", false
	}
	return unescaped, true
}
