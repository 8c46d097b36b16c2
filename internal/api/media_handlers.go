package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/http/response"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerMediaRoutes() {
	register(s.api, huma.Operation{
		OperationID: "searchMedia",
		Method:      http.MethodGet,
		Path:        "/api/v1/media/search",
		Summary:     "Search media",
		Description: "Filters photos and videos by type, driver, track and series. A query adds fuzzy matching on filename and note text.",
		Tags:        []string{"Media"},
	}, s.handleSearchMedia)

	register(s.api, huma.Operation{
		OperationID:   "deleteMedia",
		Method:        http.MethodDelete,
		Path:          "/api/v1/media/{id}",
		Summary:       "Delete media",
		Description:   "Removes one photo or video from its note and deletes the stored object",
		Tags:          []string{"Media"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteMedia)
}

// SearchMediaInput contains media search parameters.
type SearchMediaInput struct {
	Query    string `query:"q" doc:"Fuzzy text over filename and note body"`
	Type     string `query:"type" enum:"image,video" doc:"Only this media type"`
	DriverID string `query:"driver_id" doc:"Only media on notes about this driver"`
	TrackID  string `query:"track_id" doc:"Only media from sessions at this track"`
	SeriesID string `query:"series_id" doc:"Only media attributed to this series"`
	Limit    int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset   int    `query:"offset" default:"0" minimum:"0" doc:"Items to skip"`
}

// MediaSearchOutput wraps a media page for Huma.
type MediaSearchOutput struct {
	Body *service.MediaSearchPage
}

// MediaIDInput addresses a media item by ID.
type MediaIDInput struct {
	ID string `path:"id" doc:"Media ID"`
}

func (s *Server) handleSearchMedia(ctx context.Context, input *SearchMediaInput) (*MediaSearchOutput, error) {
	page, err := s.services.Search.SearchMedia(ctx, domain.MediaFilter{
		Query:    input.Query,
		Type:     domain.MediaType(input.Type),
		DriverID: input.DriverID,
		TrackID:  input.TrackID,
		SeriesID: input.SeriesID,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &MediaSearchOutput{Body: page}, nil
}

func (s *Server) handleDeleteMedia(ctx context.Context, input *MediaIDInput) (*struct{}, error) {
	if err := s.services.Notes.DeleteMedia(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// handleServeMedia serves objects of the local bucket. Keys embed a random
// token and are never rewritten, so responses can be cached aggressively.
func (s *Server) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !s.infra.Local.Exists(key) {
		response.NotFound(w, r, "media not found", s.logger)
		return
	}

	w.Header().Set("Cache-Control", CacheOneWeek)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, s.infra.Local.Path(key))
}
