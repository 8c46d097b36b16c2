package domain

import "time"

// UserPreferences holds settings for the single local user.
type UserPreferences struct {
	UserID           string       `json:"user_id,omitempty"`
	DefaultCategory  NoteCategory `json:"default_category"`
	PageSize         int          `json:"page_size"`
	Theme            string       `json:"theme"`
	FavoriteDriverID string       `json:"favorite_driver_id,omitempty"`
	FavoriteTrackID  string       `json:"favorite_track_id,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DefaultPreferences returns the preferences used before the user saves any.
func DefaultPreferences() *UserPreferences {
	return &UserPreferences{
		DefaultCategory: CategoryGeneral,
		PageSize:        DefaultPageSize,
		Theme:           "system",
	}
}
