package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

func feed(t *testing.T, ts *testServer, params url.Values) *domain.NotePage {
	t.Helper()
	resp := ts.api.Get("/api/v1/notes?" + params.Encode())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[domain.NotePage](t, resp)
	return &page
}

func TestNoteRoutes_QualifyingScenario(t *testing.T) {
	ts := setupTestServer(t)
	s := ts.seed(t)

	note := ts.createNote(t, map[string]any{
		"body":       "Great qualifying run",
		"tags":       []string{"qualifying", "setup"},
		"driver_id":  s.larson.ID,
		"session_id": s.daytonaQ.ID,
	})
	assert.Equal(t, "Kyle Larson", note.DriverName)
	assert.Equal(t, "Daytona International Speedway", note.TrackName)
	assert.ElementsMatch(t, []string{"qualifying", "setup"}, note.Tags)

	page := feed(t, ts, url.Values{"q": {"qualifying"}})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, note.ID, page.Items[0].ID)

	page = feed(t, ts, url.Values{"q": {"strategy"}})
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
}

func TestNoteRoutes_FeedFilters(t *testing.T) {
	ts := setupTestServer(t)
	s := ts.seed(t)

	atDaytona := ts.createNote(t, map[string]any{"body": "Drafting lane choice", "session_id": s.daytonaQ.ID})
	general := ts.createNote(t, map[string]any{"body": "Offseason thoughts", "category": "General", "shared": true})

	page := feed(t, ts, url.Values{
		"track_id":     {s.daytona.ID},
		"session_from": {"2025-02-01"},
		"session_to":   {"2025-02-15"},
	})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, atDaytona.ID, page.Items[0].ID)

	page = feed(t, ts, url.Values{"session_from": {"2025-03-01"}})
	assert.Equal(t, 0, page.Total, "notes without a session never match a date range")

	page = feed(t, ts, url.Values{"shared": {"true"}})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, general.ID, page.Items[0].ID)

	page = feed(t, ts, url.Values{"has_media": {"false"}, "limit": {"1"}})
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.True(t, page.HasNext)
	assert.Equal(t, general.ID, page.Items[0].ID, "newest first")
}

func TestNoteRoutes_FeedRejectsBadFilters(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/notes?session_types=Heat")
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Get("/api/v1/notes?session_from=yesterday")
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Get("/api/v1/notes?session_from=2025-03-01&session_to=2025-02-01")
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Get("/api/v1/notes?limit=500")
	requireProblem(t, resp, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestNoteRoutes_GetUpdateDelete(t *testing.T) {
	ts := setupTestServer(t)
	s := ts.seed(t)

	note := ts.createNote(t, map[string]any{"body": "Tight in the center", "tags": []string{"setup"}})

	resp := ts.api.Get("/api/v1/notes/" + note.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Tight in the center", decode[domain.NoteDetails](t, resp).Body)

	resp = ts.api.Patch("/api/v1/notes/"+note.ID, map[string]any{
		"body":      "Tight in the center, loose on exit",
		"driver_id": s.larson.ID,
		"tags":      []string{"handling"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[domain.NoteDetails](t, resp)
	assert.Equal(t, "Tight in the center, loose on exit", updated.Body)
	assert.Equal(t, s.larson.ID, updated.DriverID)
	assert.Equal(t, []string{"handling"}, updated.Tags)

	resp = ts.api.Delete("/api/v1/notes/" + note.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/notes/" + note.ID)
	requireProblem(t, resp, http.StatusNotFound, "NOT_FOUND")

	resp = ts.api.Delete("/api/v1/notes/" + note.ID)
	requireProblem(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestNoteRoutes_CreateValidation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/notes", map[string]any{"body": "   "})
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Post("/api/v1/notes", map[string]any{"body": "Fine", "category": "Gossip"})
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Post("/api/v1/notes", map[string]any{"body": "Fine", "driver_id": "nobody"})
	requireProblem(t, resp, http.StatusBadRequest, "INVALID_REFERENCE")

	resp = ts.api.Post("/api/v1/notes", map[string]any{"category": "General"})
	requireProblem(t, resp, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}
