package blob

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listedKeys(items []Listing) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	sort.Strings(keys)
	return keys
}

func TestLocalBackend_List(t *testing.T) {
	b := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "2025/02/abc_lap.jpg", "image/jpeg", []byte("jpeg bytes")))
	require.NoError(t, b.Put(ctx, "2025/04/def_wreck.mp4", "video/mp4", []byte("mp4 bytes")))

	// A half-written upload is not an object yet.
	tmp := filepath.Join(b.Root(), "2025", "02", ".upload-123")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o600))

	items, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025/02/abc_lap.jpg", "2025/04/def_wreck.mp4"}, listedKeys(items))
	for _, it := range items {
		assert.Positive(t, it.Size)
		assert.False(t, it.ModTime.IsZero())
	}
}

func TestLocalBackend_ListEmpty(t *testing.T) {
	b := newTestLocal(t)

	items, err := b.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSFTPBackend_List(t *testing.T) {
	mem := newMemSFTP()
	b := newTestSFTP(mem)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "2025/02/abc_lap.jpg", "image/jpeg", []byte("jpeg bytes")))
	require.NoError(t, b.Put(ctx, "2025/02/abc_lap.jpg.thumb.jpg", "image/jpeg", []byte("thumb")))

	items, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025/02/abc_lap.jpg", "2025/02/abc_lap.jpg.thumb.jpg"}, listedKeys(items))
}

func TestClient_ListUnsupported(t *testing.T) {
	c := newTestClient(newFakeBackend(), nil)

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, ErrListUnsupported)
}

func TestClient_ListLocal(t *testing.T) {
	local := newTestLocal(t)
	c := newTestClient(local, nil)
	ctx := context.Background()

	obj, err := c.Upload(ctx, "lap.jpg", "image/jpeg", []byte("jpeg bytes"))
	require.NoError(t, err)

	items, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, obj.Key, items[0].Key)
}
