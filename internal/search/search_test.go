package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex creates an on-disk index in a temp directory.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := Open(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func testDocs() []*Document {
	base := time.Date(2025, time.February, 15, 12, 0, 0, 0, time.UTC)
	return []*Document{
		{
			ID: "note-1", Type: DocTypeNote,
			Body:       "Great qualifying run",
			Tags:       []string{"qualifying", "setup"},
			DriverName: "Kyle Larson", DriverID: "driver-larson",
			TrackName: "Daytona International Speedway", TrackID: "track-daytona",
			SeriesName: "Cup Series", SeriesID: "series-cup",
			Category:  string(domain.CategoryGeneral),
			CreatedAt: base.UnixMilli(),
		},
		{
			ID: "note-2", Type: DocTypeNote,
			Body:       "Fuel mileage gamble paid off in the final stage",
			Tags:       []string{"fuel"},
			DriverName: "Chase Elliott", DriverID: "driver-elliott",
			TrackName: "Talladega Superspeedway", TrackID: "track-talladega",
			Category:  string(domain.CategoryStrategy),
			CreatedAt: base.Add(time.Hour).UnixMilli(),
		},
		{
			ID: "media-1", Type: DocTypeMedia,
			Body:      "Great qualifying run",
			Filename:  "Turn_4_Wreck.jpg",
			MediaType: string(domain.MediaImage),
			NoteID:    "note-1", TrackID: "track-daytona",
			TrackName: "Daytona International Speedway",
			CreatedAt: base.Add(2 * time.Hour).UnixMilli(),
		},
	}
}

func TestOpen_Empty(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestOpen_InMemory(t *testing.T) {
	index, err := Open(Options{})
	require.NoError(t, err)
	defer index.Close()

	require.NoError(t, index.Index(testDocs()...))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndex_IndexAndDelete(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.Index(testDocs()...))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, index.Delete("note-2", "missing"))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	assert.NoError(t, index.Delete())
}

func TestSearch_ExactTerm(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))

	result, err := index.Search(context.Background(), Params{Query: "qualifying", Type: DocTypeNote})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-1"}, result.IDs())

	result, err = index.Search(context.Background(), Params{Query: "strategy", Type: DocTypeNote})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_FuzzyDriverName(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))

	result, err := index.Search(context.Background(), Params{Query: "Larsen", Type: DocTypeNote})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "note-1", result.Hits[0].ID)
	assert.Equal(t, DocTypeNote, result.Hits[0].Type)
}

func TestSearch_Prefix(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))

	result, err := index.Search(context.Background(), Params{Query: "Talla"})
	require.NoError(t, err)
	assert.Equal(t, []string{"note-2"}, result.IDs())
}

func TestSearch_MediaFilters(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))
	ctx := context.Background()

	result, err := index.Search(ctx, Params{
		Query:   "wreck",
		Type:    DocTypeMedia,
		Filters: map[string]string{"media_type": "image", "track_id": "track-daytona"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"media-1"}, result.IDs())

	result, err = index.Search(ctx, Params{
		Query:   "wreck",
		Type:    DocTypeMedia,
		Filters: map[string]string{"media_type": "video"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_EmptyQueryNewestFirst(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))

	result, err := index.Search(context.Background(), Params{Type: DocTypeNote})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
	assert.Equal(t, []string{"note-2", "note-1"}, result.IDs())
}

func TestSearch_Pagination(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))

	result, err := index.Search(context.Background(), Params{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)
	assert.Equal(t, []string{"note-2"}, result.IDs())
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)
	require.NoError(t, index.Index(testDocs()...))

	require.NoError(t, index.Rebuild(testDocs()[:1]))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestOpen_ReopensAndRebuildsOnVersionChange(t *testing.T) {
	dir := t.TempDir()

	index, err := Open(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.Index(testDocs()...))
	require.NoError(t, index.Close())

	index, err = Open(Options{DataPath: dir})
	require.NoError(t, err)
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.version"), []byte("0"), 0o644))
	index, err = Open(Options{DataPath: dir})
	require.NoError(t, err)
	defer index.Close()

	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNoteDocument(t *testing.T) {
	created := time.Date(2025, time.February, 15, 12, 0, 0, 0, time.UTC)
	n := &domain.NoteDetails{
		Note: domain.Note{
			ID:        "note-1",
			Body:      "<p>Loose in <b>turn 3</b></p>",
			DriverID:  "driver-1",
			Category:  domain.CategoryTrackSpecific,
			CreatedAt: created,
		},
		DriverName: "Kyle Larson",
		TrackID:    "track-1",
		Tags:       []string{"handling"},
	}

	doc := NoteDocument(n)
	assert.Equal(t, DocTypeNote, doc.Type)
	assert.NotContains(t, doc.Body, "<b>")
	assert.Contains(t, doc.Body, "turn 3")
	assert.Equal(t, "Track Specific", doc.Category)
	assert.Equal(t, created.UnixMilli(), doc.CreatedAt)

	m := doc.ToMap()
	assert.Equal(t, "note", m["type"])
	assert.Equal(t, "driver-1", m["driver_id"])
	assert.NotContains(t, m, "filename")
	assert.NotContains(t, m, "series_id")
}

func TestMediaDocument(t *testing.T) {
	r := &domain.MediaSearchResult{
		Media:    domain.Media{ID: "media-1", NoteID: "note-1", Type: domain.MediaVideo, Filename: "pit_stop.mp4"},
		NoteBody: "Fast stop",
		SeriesID: "series-cup",
	}

	doc := MediaDocument(r)
	assert.Equal(t, DocTypeMedia, doc.Type)
	assert.Equal(t, "video", doc.MediaType)
	assert.Equal(t, "note-1", doc.NoteID)
	assert.Equal(t, "series-cup", doc.SeriesID)
}
