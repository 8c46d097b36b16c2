package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
	"github.com/racingnotes/racingnotes-server/internal/validation"
)

// UpdatePreferencesRequest changes the local user's preferences. Nil fields are kept.
type UpdatePreferencesRequest struct {
	DefaultCategory  *string `json:"default_category,omitempty" validate:"omitempty,note_category"`
	PageSize         *int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
	Theme            *string `json:"theme,omitempty" validate:"omitempty,oneof=system light dark"`
	FavoriteDriverID *string `json:"favorite_driver_id,omitempty"`
	FavoriteTrackID  *string `json:"favorite_track_id,omitempty"`
}

// PreferencesService reads and writes the single-user preferences row.
type PreferencesService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPreferencesService creates a new preferences service.
func NewPreferencesService(store store.Store, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{
		store:     store,
		validator: validation.New(),
		logger:    logger,
	}
}

// Get returns the saved preferences, or the defaults when none are saved.
func (s *PreferencesService) Get(ctx context.Context) (*domain.UserPreferences, error) {
	prefs, err := s.store.GetPreferences(ctx, "")
	if errors.Is(err, store.ErrNotFound) {
		return domain.DefaultPreferences(), nil
	}
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	return prefs, nil
}

// Update applies req on top of the current preferences.
func (s *PreferencesService) Update(ctx context.Context, req UpdatePreferencesRequest) (*domain.UserPreferences, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	prefs, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if req.DefaultCategory != nil {
		prefs.DefaultCategory = domain.NoteCategory(*req.DefaultCategory)
	}
	if req.PageSize != nil {
		prefs.PageSize = *req.PageSize
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.FavoriteDriverID != nil {
		prefs.FavoriteDriverID = *req.FavoriteDriverID
	}
	if req.FavoriteTrackID != nil {
		prefs.FavoriteTrackID = *req.FavoriteTrackID
	}
	prefs.UpdatedAt = time.Now().UTC()

	if err := s.store.UpsertPreferences(ctx, prefs); err != nil {
		return nil, translateError(s.logger, err)
	}
	s.logger.Info("preferences updated")
	return prefs, nil
}
