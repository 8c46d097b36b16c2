package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	register(s.api, huma.Operation{
		OperationID: "getReadModelState",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/read-model",
		Summary:     "Read model state",
		Description: "Reports when the denormalized note view was last refreshed and whether it is stale",
		Tags:        []string{"Admin"},
	}, s.handleGetReadModelState)

	register(s.api, huma.Operation{
		OperationID: "refreshReadModel",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/read-model/refresh",
		Summary:     "Refresh read model",
		Description: "Rebuilds the denormalized note view",
		Tags:        []string{"Admin"},
	}, s.handleRefreshReadModel)

	register(s.api, huma.Operation{
		OperationID: "sweepBlobs",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/blobs/sweep",
		Summary:     "Reconcile storage",
		Description: "Retries pending blob deletions and removes stored objects no media row references",
		Tags:        []string{"Admin"},
	}, s.handleSweepBlobs)

	register(s.api, huma.Operation{
		OperationID: "clearCache",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/cache/clear",
		Summary:     "Clear cache",
		Description: "Drops every cached query result and reports the counters before clearing",
		Tags:        []string{"Admin"},
	}, s.handleClearCache)

	register(s.api, huma.Operation{
		OperationID: "reindexSearch",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/search/reindex",
		Summary:     "Rebuild search index",
		Description: "Rebuilds the fuzzy search index from the database",
		Tags:        []string{"Admin"},
	}, s.handleReindexSearch)
}

// ReadModelStateOutput wraps the read model state for Huma.
type ReadModelStateOutput struct {
	Body *domain.ReadModelState
}

// RefreshOutput wraps a refresh result for Huma.
type RefreshOutput struct {
	Body struct {
		Rows int `json:"rows" doc:"Rows in the refreshed view"`
	}
}

// SweepOutput wraps a sweep result for Huma.
type SweepOutput struct {
	Body *service.SweepResult
}

// CacheStatsOutput wraps cache counters for Huma.
type CacheStatsOutput struct {
	Body cache.Stats
}

// ReindexOutput wraps a reindex result for Huma.
type ReindexOutput struct {
	Body struct {
		Documents int `json:"documents" doc:"Documents written to the index"`
	}
}

func (s *Server) handleGetReadModelState(ctx context.Context, _ *struct{}) (*ReadModelStateOutput, error) {
	state, err := s.services.ReadModel.State(ctx)
	if err != nil {
		return nil, err
	}
	return &ReadModelStateOutput{Body: state}, nil
}

func (s *Server) handleRefreshReadModel(ctx context.Context, _ *struct{}) (*RefreshOutput, error) {
	rows, err := s.services.ReadModel.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	out := &RefreshOutput{}
	out.Body.Rows = rows
	return out, nil
}

func (s *Server) handleSweepBlobs(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
	result, err := s.services.Sweeper.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	return &SweepOutput{Body: result}, nil
}

func (s *Server) handleClearCache(_ context.Context, _ *struct{}) (*CacheStatsOutput, error) {
	stats := s.services.Stats.CacheStats()
	s.services.Stats.ClearCache()
	return &CacheStatsOutput{Body: stats}, nil
}

func (s *Server) handleReindexSearch(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	if s.services.Search == nil {
		return nil, domainerrors.Conflict("search index is not configured")
	}
	n, err := s.services.Search.Reindex(ctx)
	if err != nil {
		return nil, err
	}
	out := &ReindexOutput{}
	out.Body.Documents = n
	return out, nil
}
