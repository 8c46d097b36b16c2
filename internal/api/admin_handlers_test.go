package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func TestAdminRoutes_ReadModel(t *testing.T) {
	ts := setupTestServer(t)
	ts.createNote(t, map[string]any{"body": "Green flag run"})
	ts.createNote(t, map[string]any{"body": "Yellow on lap 40"})

	resp := ts.api.Post("/api/v1/admin/read-model/refresh", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 2, decodeBody[RefreshOutput](t, resp).Body.Rows)

	resp = ts.api.Get("/api/v1/admin/read-model")
	require.Equal(t, http.StatusOK, resp.Code)
	state := decode[domain.ReadModelState](t, resp)
	assert.Equal(t, 2, state.Rows)
	assert.False(t, state.Stale)
	require.NotNil(t, state.RefreshedAt)
}

func TestAdminRoutes_Maintenance(t *testing.T) {
	ts := setupTestServer(t)
	ts.createNote(t, map[string]any{"body": "Restart on the outside"})

	resp := ts.api.Post("/api/v1/admin/blobs/sweep", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	sweep := decode[service.SweepResult](t, resp)
	assert.Zero(t, sweep.Failed)
	assert.Zero(t, sweep.Pending)

	// Warm the cache, then clear it.
	require.Equal(t, http.StatusOK, ts.api.Get("/api/v1/stats").Code)
	resp = ts.api.Post("/api/v1/admin/cache/clear", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Positive(t, decodeBody[CacheStatsOutput](t, resp).Body.Entries)

	resp = ts.api.Post("/api/v1/admin/search/reindex", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, decodeBody[ReindexOutput](t, resp).Body.Documents)
}
