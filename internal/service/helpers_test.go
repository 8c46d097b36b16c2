package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/blob"
	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/media/images"
	"github.com/racingnotes/racingnotes-server/internal/media/validate"
	"github.com/racingnotes/racingnotes-server/internal/search"
	"github.com/racingnotes/racingnotes-server/internal/store"
	"github.com/racingnotes/racingnotes-server/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend wraps a local bucket and fails on demand.
type flakyBackend struct {
	*blob.LocalBackend

	mu           sync.Mutex
	puts         int
	failPutAfter int // fail every Put after this many; negative never fails
	failDeletes  bool
}

func (b *flakyBackend) Put(ctx context.Context, key, contentType string, data []byte) error {
	b.mu.Lock()
	b.puts++
	fail := b.failPutAfter >= 0 && b.puts > b.failPutAfter
	b.mu.Unlock()
	if fail {
		return errors.New("connection reset by peer")
	}
	return b.LocalBackend.Put(ctx, key, contentType, data)
}

func (b *flakyBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	fail := b.failDeletes
	b.mu.Unlock()
	if fail {
		return errors.New("bucket unavailable")
	}
	return b.LocalBackend.Delete(ctx, key)
}

func (b *flakyBackend) setFailDeletes(v bool) {
	b.mu.Lock()
	b.failDeletes = v
	b.mu.Unlock()
}

// testEnv wires the services against a temp database and bucket.
type testEnv struct {
	store      *sqlite.Store
	backend    *flakyBackend
	blobs      *blob.Client
	cache      *cache.Cache
	readModel  *ReadModelService
	search     *SearchService
	notes      *NoteService
	reference  *ReferenceService
	tags       *TagService
	engagement *EngagementService
	prefs      *PreferencesService
	stats      *StatsService
	sweeper    *Sweeper
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	local, err := blob.NewLocalBackend(filepath.Join(t.TempDir(), "bucket"), "http://localhost/media", 0)
	require.NoError(t, err)
	backend := &flakyBackend{LocalBackend: local, failPutAfter: -1}
	blobs := blob.NewClient(backend, 5*time.Second, nil, logger)

	idx, err := search.Open(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	c := cache.New(time.Minute)
	pipeline := media.NewPipeline(validate.New(100*1024*1024), images.NewCompressor(images.Options{}, nil, logger), nil, nil, logger)

	env := &testEnv{store: st, backend: backend, blobs: blobs, cache: c}
	env.readModel = NewReadModelService(st, nil, logger)
	env.search = NewSearchService(idx, st, c, 5*time.Minute, logger)
	env.notes = NewNoteService(st, pipeline, blobs, c, env.readModel, env.search, 5*time.Minute, nil, logger)
	env.reference = NewReferenceService(st, c, time.Hour, logger)
	env.tags = NewTagService(st, c, 5*time.Minute, logger)
	env.engagement = NewEngagementService(st, c, env.readModel, logger)
	env.prefs = NewPreferencesService(st, logger)
	env.stats = NewStatsService(st, c, 5*time.Minute, logger)
	env.sweeper = NewSweeper(st, blobs, nil, logger)
	return env
}

// fixtures are the reference rows most tests need.
type fixtures struct {
	cup        *domain.Series
	xfinity    *domain.Series
	daytona    *domain.Track
	talladega  *domain.Track
	larson     *domain.Driver
	elliott    *domain.Driver
	daytonaQ   *domain.Session
	talladegaR *domain.Session
}

func seedFixtures(t *testing.T, env *testEnv) *fixtures {
	t.Helper()
	ctx := context.Background()
	ref := env.reference
	f := &fixtures{}
	var err error

	f.cup, err = ref.CreateSeries(ctx, CreateSeriesRequest{Name: "NASCAR Cup Series"})
	require.NoError(t, err)
	f.xfinity, err = ref.CreateSeries(ctx, CreateSeriesRequest{Name: "NASCAR Xfinity Series"})
	require.NoError(t, err)
	f.daytona, err = ref.CreateTrack(ctx, CreateTrackRequest{Name: "Daytona International Speedway", Type: "Superspeedway"})
	require.NoError(t, err)
	f.talladega, err = ref.CreateTrack(ctx, CreateTrackRequest{Name: "Talladega Superspeedway", Type: "Superspeedway"})
	require.NoError(t, err)
	f.larson, err = ref.CreateDriver(ctx, CreateDriverRequest{Name: "Kyle Larson", SeriesID: f.cup.ID})
	require.NoError(t, err)
	f.elliott, err = ref.CreateDriver(ctx, CreateDriverRequest{Name: "Chase Elliott", SeriesID: f.cup.ID})
	require.NoError(t, err)
	f.daytonaQ, err = ref.CreateSession(ctx, CreateSessionRequest{
		Date: "2025-02-15", Type: "Qualifying", TrackID: f.daytona.ID, SeriesID: f.cup.ID,
	})
	require.NoError(t, err)
	f.talladegaR, err = ref.CreateSession(ctx, CreateSessionRequest{
		Date: "2025-04-27", Type: "Race", TrackID: f.talladega.ID, SeriesID: f.cup.ID,
	})
	require.NoError(t, err)
	return f
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngUpload(t *testing.T, name string) media.Upload {
	t.Helper()
	data := pngBytes(t, 64, 48)
	return media.Upload{Filename: name, ContentType: "image/png", Size: int64(len(data)), Data: data}
}

// storedKeys lists every object in the test bucket.
func storedKeys(t *testing.T, env *testEnv) []string {
	t.Helper()
	items, err := env.blobs.List(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}

func requireCode(t *testing.T, err error, code domainerrors.Code) {
	t.Helper()
	require.Error(t, err)
	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %T: %v", err, err)
	assert.Equal(t, code, domainErr.Code, "error: %v", err)
}

// failingStore makes CreateNote and AddMedia fail after everything else succeeded.
type failingStore struct {
	store.Store
}

func (failingStore) CreateNote(context.Context, *domain.Note, []string, []*domain.Media) error {
	return errors.New("disk I/O error")
}

func (failingStore) AddMedia(context.Context, string, []*domain.Media) error {
	return errors.New("disk I/O error")
}
