package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

func (s *Server) registerEngagementRoutes() {
	register(s.api, huma.Operation{
		OperationID:   "likeNote",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes/{id}/like",
		Summary:       "Like note",
		Description:   "Likes a note. Liking twice has no further effect.",
		Tags:          []string{"Engagement"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleLikeNote)

	register(s.api, huma.Operation{
		OperationID:   "unlikeNote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/notes/{id}/like",
		Summary:       "Unlike note",
		Description:   "Removes the like from a note, if any",
		Tags:          []string{"Engagement"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUnlikeNote)

	register(s.api, huma.Operation{
		OperationID: "listReplies",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}/replies",
		Summary:     "List replies",
		Description: "Returns replies to a note, oldest first",
		Tags:        []string{"Engagement"},
	}, s.handleListReplies)

	register(s.api, huma.Operation{
		OperationID:   "createReply",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes/{id}/replies",
		Summary:       "Reply to note",
		Description:   "Adds a reply to a note",
		Tags:          []string{"Engagement"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateReply)

	register(s.api, huma.Operation{
		OperationID:   "deleteReply",
		Method:        http.MethodDelete,
		Path:          "/api/v1/replies/{id}",
		Summary:       "Delete reply",
		Description:   "Deletes a reply",
		Tags:          []string{"Engagement"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteReply)
}

// ListRepliesInput contains parameters for listing replies.
type ListRepliesInput struct {
	ID     string `path:"id" doc:"Note ID"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Items to skip"`
}

// RepliesOutput wraps a reply list for Huma.
type RepliesOutput struct {
	Body struct {
		Replies []*domain.Reply `json:"replies" doc:"Replies, oldest first"`
	}
}

// CreateReplyInput wraps the reply request for Huma.
type CreateReplyInput struct {
	ID   string `path:"id" doc:"Note ID"`
	Body struct {
		Body string `json:"body" doc:"Reply text"`
	}
}

// ReplyOutput wraps a reply for Huma.
type ReplyOutput struct {
	Body *domain.Reply
}

// ReplyIDInput addresses a reply by ID.
type ReplyIDInput struct {
	ID string `path:"id" doc:"Reply ID"`
}

func (s *Server) handleLikeNote(ctx context.Context, input *NoteIDInput) (*struct{}, error) {
	return nil, s.services.Engagement.Like(ctx, input.ID)
}

func (s *Server) handleUnlikeNote(ctx context.Context, input *NoteIDInput) (*struct{}, error) {
	return nil, s.services.Engagement.Unlike(ctx, input.ID)
}

func (s *Server) handleListReplies(ctx context.Context, input *ListRepliesInput) (*RepliesOutput, error) {
	replies, err := s.services.Engagement.ListReplies(ctx, input.ID, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	out := &RepliesOutput{}
	out.Body.Replies = replies
	return out, nil
}

func (s *Server) handleCreateReply(ctx context.Context, input *CreateReplyInput) (*ReplyOutput, error) {
	reply, err := s.services.Engagement.Reply(ctx, input.ID, input.Body.Body)
	if err != nil {
		return nil, err
	}
	return &ReplyOutput{Body: reply}, nil
}

func (s *Server) handleDeleteReply(ctx context.Context, input *ReplyIDInput) (*struct{}, error) {
	return nil, s.services.Engagement.DeleteReply(ctx, input.ID)
}
