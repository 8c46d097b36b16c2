package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	register(s.api, huma.Operation{
		OperationID: "searchNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search notes",
		Description: "Fuzzy and prefix search over note text, tags, driver and track names. Tolerates typos.",
		Tags:        []string{"Search"},
	}, s.handleSearchNotes)
}

// SearchNotesInput contains search parameters.
type SearchNotesInput struct {
	Query  string `query:"q" required:"true" minLength:"1" doc:"Search text"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Items to skip"`
}

// SearchNotesOutput wraps a search page for Huma.
type SearchNotesOutput struct {
	Body *service.NoteSearchPage
}

func (s *Server) handleSearchNotes(ctx context.Context, input *SearchNotesInput) (*SearchNotesOutput, error) {
	page, err := s.services.Search.SearchNotes(ctx, input.Query, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &SearchNotesOutput{Body: page}, nil
}
