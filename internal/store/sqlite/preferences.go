package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// GetPreferences returns the stored preferences for userID ("" is the local user).
// Returns store.ErrNotFound when nothing has been saved yet.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	var (
		p         domain.UserPreferences
		uid       sql.NullString
		driverID  sql.NullString
		trackID   sql.NullString
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, default_category, page_size, theme, favorite_driver_id, favorite_track_id, updated_at
		FROM user_preferences WHERE user_id IS ?`, nullString(userID),
	).Scan(&uid, &p.DefaultCategory, &p.PageSize, &p.Theme, &driverID, &trackID, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	p.UserID = uid.String
	p.FavoriteDriverID = driverID.String
	p.FavoriteTrackID = trackID.String
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPreferences saves preferences, replacing any existing row for the user.
func (s *Store) UpsertPreferences(ctx context.Context, p *domain.UserPreferences) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	args := []any{
		string(p.DefaultCategory),
		p.PageSize,
		p.Theme,
		nullString(p.FavoriteDriverID),
		nullString(p.FavoriteTrackID),
		formatTime(p.UpdatedAt),
		nullString(p.UserID),
	}

	// The unique key is an expression over a nullable column, which ON CONFLICT
	// cannot target, so update first and insert when nothing matched.
	res, err := tx.ExecContext(ctx, `
		UPDATE user_preferences SET
			default_category = ?, page_size = ?, theme = ?,
			favorite_driver_id = ?, favorite_track_id = ?, updated_at = ?
		WHERE user_id IS ?`, args...)
	if err != nil {
		return mapWriteError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_preferences
				(default_category, page_size, theme, favorite_driver_id, favorite_track_id, updated_at, user_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return mapWriteError(err)
		}
	}

	return tx.Commit()
}
