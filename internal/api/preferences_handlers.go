package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerPreferencesRoutes() {
	register(s.api, huma.Operation{
		OperationID: "getPreferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences",
		Summary:     "Get preferences",
		Description: "Returns the notebook preferences, with defaults when none were saved",
		Tags:        []string{"Preferences"},
	}, s.handleGetPreferences)

	register(s.api, huma.Operation{
		OperationID: "updatePreferences",
		Method:      http.MethodPut,
		Path:        "/api/v1/preferences",
		Summary:     "Update preferences",
		Description: "Updates the supplied preference fields",
		Tags:        []string{"Preferences"},
	}, s.handleUpdatePreferences)

	register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Notebook statistics",
		Description: "Counts notes, media, tags, drivers and sessions, plus storage used",
		Tags:        []string{"Stats"},
	}, s.handleGetStats)
}

// PreferencesOutput wraps preferences for Huma.
type PreferencesOutput struct {
	Body *domain.UserPreferences
}

// UpdatePreferencesInput wraps the preferences update for Huma.
type UpdatePreferencesInput struct {
	Body service.UpdatePreferencesRequest
}

// StatsOutput wraps statistics for Huma.
type StatsOutput struct {
	Body *domain.Stats
}

func (s *Server) handleGetPreferences(ctx context.Context, _ *struct{}) (*PreferencesOutput, error) {
	prefs, err := s.services.Preferences.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &PreferencesOutput{Body: prefs}, nil
}

func (s *Server) handleUpdatePreferences(ctx context.Context, input *UpdatePreferencesInput) (*PreferencesOutput, error) {
	prefs, err := s.services.Preferences.Update(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &PreferencesOutput{Body: prefs}, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := s.services.Stats.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: stats}, nil
}
