package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordUpload("image", 2048, nil)
	m.RecordUpload("video", 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("image", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("video", StatusError)))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.uploadBytesTotal.WithLabelValues("image")))
}

func TestCacheObserver(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.CacheHit("notes_feed")
	m.CacheHit("notes_feed")
	m.CacheMiss("notes_feed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequestsTotal.WithLabelValues("notes_feed", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequestsTotal.WithLabelValues("notes_feed", "miss")))
}

func TestObserveCompression_SkipsHistogramsOnError(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveCompression("image", time.Second, 100, 50, nil)
	m.ObserveCompression("image", time.Second, 100, 0, errors.New("decode"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.compressionTotal.WithLabelValues("image", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compressionTotal.WithLabelValues("image", StatusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.compressionRatio))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpload("image", 1, nil)
		m.ObserveCompression("image", time.Second, 1, 1, nil)
		m.ObserveStorage("local", "upload", time.Millisecond, nil)
		m.CacheHit("stats")
		m.CacheMiss("stats")
		m.RecordSweep(1, 2)
		m.RecordRefresh(nil)
	})
}

func TestHandler_ServesExposition(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordSweep(3, 1)

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "racingnotes_sweep_removed_blobs_total 3")
	assert.Contains(t, rec.Body.String(), "racingnotes_pending_blob_deletions 1")
}
