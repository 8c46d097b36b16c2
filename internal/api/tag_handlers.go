package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns every tag with its note count, sorted by label",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	register(s.api, huma.Operation{
		OperationID: "popularTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/popular",
		Summary:     "Popular tags",
		Description: "Returns the most used tags",
		Tags:        []string{"Tags"},
	}, s.handlePopularTags)

	register(s.api, huma.Operation{
		OperationID: "searchTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/search",
		Summary:     "Search tags",
		Description: "Returns tags whose label contains the query",
		Tags:        []string{"Tags"},
	}, s.handleSearchTags)

	register(s.api, huma.Operation{
		OperationID: "suggestTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/suggest",
		Summary:     "Suggest tags",
		Description: "Suggests tags for a note body from racing terms and hashtags",
		Tags:        []string{"Tags"},
	}, s.handleSuggestTags)
}

// === DTOs ===

// TagsOutput wraps a tag list for Huma.
type TagsOutput struct {
	Body struct {
		Tags []*domain.Tag `json:"tags" doc:"Tags"`
	}
}

// PopularTagsInput contains parameters for popular tags.
type PopularTagsInput struct {
	Limit int `query:"limit" default:"10" minimum:"1" maximum:"100" doc:"Number of tags"`
}

// SearchTagsInput contains parameters for tag search.
type SearchTagsInput struct {
	Query string `query:"q" required:"true" doc:"Substring to look for; a leading # is ignored"`
	Limit int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Number of tags"`
}

// SuggestTagsInput wraps the suggestion request for Huma.
type SuggestTagsInput struct {
	Body struct {
		Body string `json:"body" maxLength:"5000" doc:"Note text to analyze"`
	}
}

// SuggestTagsOutput wraps suggested labels for Huma.
type SuggestTagsOutput struct {
	Body struct {
		Suggestions []string `json:"suggestions" doc:"Suggested tag labels"`
	}
}

// === Handlers ===

func tagsOutput(tags []*domain.Tag) *TagsOutput {
	out := &TagsOutput{}
	out.Body.Tags = tags
	return out
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*TagsOutput, error) {
	tags, err := s.services.Tags.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	return tagsOutput(tags), nil
}

func (s *Server) handlePopularTags(ctx context.Context, input *PopularTagsInput) (*TagsOutput, error) {
	tags, err := s.services.Tags.PopularTags(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	return tagsOutput(tags), nil
}

func (s *Server) handleSearchTags(ctx context.Context, input *SearchTagsInput) (*TagsOutput, error) {
	tags, err := s.services.Tags.SearchTags(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return tagsOutput(tags), nil
}

func (s *Server) handleSuggestTags(ctx context.Context, input *SuggestTagsInput) (*SuggestTagsOutput, error) {
	suggestions, err := s.services.Tags.Suggest(ctx, input.Body.Body)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	out := &SuggestTagsOutput{}
	out.Body.Suggestions = suggestions
	return out, nil
}
