package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerShareRoutes() {
	register(s.api, huma.Operation{
		OperationID:   "shareNote",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes/{id}/share",
		Summary:       "Create share link",
		Description:   "Issues a signed, expiring token for a note marked as shared",
		Tags:          []string{"Sharing"},
		DefaultStatus: http.StatusCreated,
	}, s.handleShareNote)

	register(s.api, huma.Operation{
		OperationID: "getSharedNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/shared/{token}",
		Summary:     "Open share link",
		Description: "Returns the note behind a share token while the note is still shared",
		Tags:        []string{"Sharing"},
	}, s.handleGetSharedNote)
}

// ShareLinkOutput wraps a share link for Huma.
type ShareLinkOutput struct {
	Body *service.ShareLink
}

// SharedNoteInput addresses a note by share token.
type SharedNoteInput struct {
	Token string `path:"token" doc:"Share token"`
}

// SharedNoteOutput wraps a shared note for Huma.
type SharedNoteOutput struct {
	CacheControl string `header:"Cache-Control"`
	Body         *domain.NoteDetails
}

func (s *Server) handleShareNote(ctx context.Context, input *NoteIDInput) (*ShareLinkOutput, error) {
	link, err := s.services.Share.Issue(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ShareLinkOutput{Body: link}, nil
}

func (s *Server) handleGetSharedNote(ctx context.Context, input *SharedNoteInput) (*SharedNoteOutput, error) {
	note, err := s.services.Share.Resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return &SharedNoteOutput{CacheControl: CacheNoStore, Body: note}, nil
}
