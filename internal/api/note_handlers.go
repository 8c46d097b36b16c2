package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerNoteRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List notes",
		Description: "Returns one page of the note feed, newest first. All filters combine with AND.",
		Tags:        []string{"Notes"},
	}, s.handleListNotes)

	register(s.api, huma.Operation{
		OperationID:   "createNote",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes",
		Summary:       "Create note",
		Description:   "Creates a note without media. Use /api/v1/notes/upload to attach files.",
		Tags:          []string{"Notes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateNote)

	register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Get note",
		Description: "Returns a note with its driver, session, tags and media",
		Tags:        []string{"Notes"},
	}, s.handleGetNote)

	register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPatch,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Update note",
		Description: "Updates the supplied fields. Supplying tags replaces the tag set.",
		Tags:        []string{"Notes"},
	}, s.handleUpdateNote)

	register(s.api, huma.Operation{
		OperationID:   "deleteNote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/notes/{id}",
		Summary:       "Delete note",
		Description:   "Deletes a note with its media, tag links, likes and replies",
		Tags:          []string{"Notes"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteNote)
}

// === DTOs ===

// ListNotesInput contains the feed filters.
type ListNotesInput struct {
	Query        string `query:"q" doc:"Full-text query over body and tags"`
	TrackID      string `query:"track_id" doc:"Linked session's track"`
	SeriesID     string `query:"series_id" doc:"Attributed series"`
	DriverID     string `query:"driver_id" doc:"Linked driver"`
	Tags         string `query:"tags" doc:"Comma separated tag labels, any of"`
	Categories   string `query:"categories" doc:"Comma separated categories, any of"`
	SessionTypes string `query:"session_types" doc:"Comma separated session types, any of"`
	SessionFrom  string `query:"session_from" doc:"Linked session on or after this date"`
	SessionTo    string `query:"session_to" doc:"Linked session on or before this date"`
	CreatedFrom  string `query:"created_from" doc:"Created at or after"`
	CreatedTo    string `query:"created_to" doc:"Created at or before"`
	SharedOnly   bool   `query:"shared" doc:"Only shared notes"`
	HasMedia     string `query:"has_media" enum:"true,false" doc:"Only notes with (true) or without (false) media"`
	Limit        int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset       int    `query:"offset" default:"0" minimum:"0" doc:"Items to skip"`
}

// filter converts the query parameters into a feed filter.
func (in *ListNotesInput) filter() (domain.NoteFilter, error) {
	f := domain.NoteFilter{
		Query:      in.Query,
		TrackID:    in.TrackID,
		SeriesID:   in.SeriesID,
		DriverID:   in.DriverID,
		Tags:       splitList(in.Tags),
		SharedOnly: in.SharedOnly,
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	for _, c := range splitList(in.Categories) {
		f.Categories = append(f.Categories, domain.NoteCategory(c))
	}
	for _, t := range splitList(in.SessionTypes) {
		f.SessionTypes = append(f.SessionTypes, domain.SessionType(t))
	}

	var err error
	if f.SessionFrom, err = parseTimeParam("session_from", in.SessionFrom, false); err != nil {
		return f, err
	}
	if f.SessionTo, err = parseTimeParam("session_to", in.SessionTo, true); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = parseTimeParam("created_from", in.CreatedFrom, false); err != nil {
		return f, err
	}
	if f.CreatedTo, err = parseTimeParam("created_to", in.CreatedTo, true); err != nil {
		return f, err
	}
	if f.HasMedia, err = parseBoolParam("has_media", in.HasMedia); err != nil {
		return f, err
	}
	return f, nil
}

// NotePageOutput wraps a feed page for Huma.
type NotePageOutput struct {
	Body *domain.NotePage
}

// CreateNoteBody is the JSON body for creating a note.
type CreateNoteBody struct {
	Body      string   `json:"body" minLength:"1" maxLength:"5000" doc:"Note text; HTML is converted to Markdown"`
	Category  string   `json:"category,omitempty" doc:"General, Track-Specific, Strategy or Other"`
	DriverID  string   `json:"driver_id,omitempty" doc:"Driver the note is about"`
	SessionID string   `json:"session_id,omitempty" doc:"Session the note was taken in"`
	Shared    bool     `json:"shared,omitempty" doc:"Whether share links may be issued"`
	Tags      []string `json:"tags,omitempty" doc:"Tag labels; hashtags in the body are added too"`
}

func (b CreateNoteBody) request() service.CreateNoteRequest {
	return service.CreateNoteRequest{
		Body:      b.Body,
		Category:  b.Category,
		DriverID:  b.DriverID,
		SessionID: b.SessionID,
		Shared:    b.Shared,
		Tags:      b.Tags,
	}
}

// CreateNoteInput wraps the create note request for Huma.
type CreateNoteInput struct {
	Body CreateNoteBody
}

// NoteOutput wraps a note for Huma.
type NoteOutput struct {
	Body *domain.NoteDetails
}

// NoteIDInput addresses a note by ID.
type NoteIDInput struct {
	ID string `path:"id" doc:"Note ID"`
}

// UpdateNoteInput wraps the update note request for Huma.
type UpdateNoteInput struct {
	ID   string `path:"id" doc:"Note ID"`
	Body service.UpdateNoteRequest
}

// === Handlers ===

func (s *Server) handleListNotes(ctx context.Context, input *ListNotesInput) (*NotePageOutput, error) {
	filter, err := input.filter()
	if err != nil {
		return nil, err
	}
	page, err := s.services.Notes.Feed(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &NotePageOutput{Body: page}, nil
}

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*NoteOutput, error) {
	note, err := s.services.Notes.Create(ctx, input.Body.request(), nil)
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *NoteIDInput) (*NoteOutput, error) {
	note, err := s.services.Notes.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	note, err := s.services.Notes.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *NoteIDInput) (*struct{}, error) {
	if err := s.services.Notes.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
