package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRoutes(t *testing.T) {
	ts := setupTestServer(t)
	ts.createNote(t, map[string]any{"body": "Long run on old tires", "tags": []string{"tires", "setup"}})
	ts.createNote(t, map[string]any{"body": "Loose in turn 3", "tags": []string{"#Setup"}})

	resp := ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	tags := decodeBody[TagsOutput](t, resp).Body.Tags
	require.Len(t, tags, 2)
	assert.Equal(t, "setup", tags[0].Label)
	assert.Equal(t, 2, tags[0].NoteCount)

	resp = ts.api.Get("/api/v1/tags/popular?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	popular := decodeBody[TagsOutput](t, resp).Body.Tags
	require.Len(t, popular, 1)
	assert.Equal(t, "setup", popular[0].Label)

	resp = ts.api.Get("/api/v1/tags/search?q=%23TIR")
	require.Equal(t, http.StatusOK, resp.Code)
	found := decodeBody[TagsOutput](t, resp).Body.Tags
	require.Len(t, found, 1)
	assert.Equal(t, "tires", found[0].Label)

	resp = ts.api.Get("/api/v1/tags/search")
	requireProblem(t, resp, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestTagRoutes_Suggest(t *testing.T) {
	ts := setupTestServer(t)
	ts.createNote(t, map[string]any{"body": "Baseline", "tags": []string{"daytona"}})

	resp := ts.api.Post("/api/v1/tags/suggest", map[string]any{
		"body": "Caution came out at Daytona, pitted for fuel #strategy",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	suggestions := decodeBody[SuggestTagsOutput](t, resp).Body.Suggestions
	assert.Contains(t, suggestions, "caution")
	assert.Contains(t, suggestions, "pit")
	assert.Contains(t, suggestions, "strategy")
	assert.Contains(t, suggestions, "daytona")

	resp = ts.api.Post("/api/v1/tags/suggest", map[string]any{"body": ""})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, resp.Body.String())
}
