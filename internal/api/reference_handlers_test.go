package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRoutes_CreateAndList(t *testing.T) {
	ts := setupTestServer(t)
	s := ts.seed(t)

	resp := ts.api.Get("/api/v1/tracks")
	require.Equal(t, http.StatusOK, resp.Code)
	tracks := decodeBody[TracksOutput](t, resp).Body.Tracks
	require.Len(t, tracks, 1)
	assert.Equal(t, s.daytona.ID, tracks[0].ID)

	resp = ts.api.Get("/api/v1/series")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeBody[SeriesListOutput](t, resp).Body.Series, 1)

	resp = ts.api.Get("/api/v1/drivers?series_id=" + s.cup.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	drivers := decodeBody[DriversOutput](t, resp).Body.Drivers
	require.Len(t, drivers, 1)
	assert.Equal(t, "Kyle Larson", drivers[0].Name)

	resp = ts.api.Get("/api/v1/sessions?type=Qualifying&track_id=" + s.daytona.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	sessions := decodeBody[SessionsOutput](t, resp).Body.Sessions
	require.Len(t, sessions, 1)
	assert.Equal(t, "Daytona International Speedway", sessions[0].TrackName)

	resp = ts.api.Get("/api/v1/sessions/" + s.daytonaQ.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "NASCAR Cup Series", decodeBody[SessionOutput](t, resp).Body.SeriesName)
}

func TestReferenceRoutes_Errors(t *testing.T) {
	ts := setupTestServer(t)
	s := ts.seed(t)

	resp := ts.api.Post("/api/v1/tracks", map[string]any{"name": "Daytona International Speedway", "type": "Superspeedway"})
	requireProblem(t, resp, http.StatusConflict, "ALREADY_EXISTS")

	resp = ts.api.Post("/api/v1/tracks", map[string]any{"name": "Eldora", "type": "Dirt"})
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Post("/api/v1/drivers", map[string]any{"name": "Ghost", "series_id": "no-such-series"})
	requireProblem(t, resp, http.StatusBadRequest, "INVALID_REFERENCE")

	resp = ts.api.Get("/api/v1/sessions?type=Heat")
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")

	resp = ts.api.Get("/api/v1/sessions/missing")
	requireProblem(t, resp, http.StatusNotFound, "NOT_FOUND")

	// Body schema violations are rejected by huma before the service runs.
	resp = ts.api.Post("/api/v1/sessions", map[string]any{"date": "2025-02-16", "type": "Race", "track_id": s.daytona.ID})
	requireProblem(t, resp, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}
