package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// noteColumns must match the scan order in scanNote.
const noteColumns = `id, body, driver_id, session_id, category, shared, user_id, created_at, updated_at`

func scanNote(scanner interface{ Scan(dest ...any) error }) (*domain.Note, error) {
	var (
		n         domain.Note
		driverID  sql.NullString
		sessionID sql.NullString
		userID    sql.NullString
		shared    int
		createdAt string
		updatedAt string
	)
	err := scanner.Scan(
		&n.ID,
		&n.Body,
		&driverID,
		&sessionID,
		&n.Category,
		&shared,
		&userID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.DriverID = driverID.String
	n.SessionID = sessionID.String
	n.UserID = userID.String
	n.Shared = shared != 0

	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote inserts a note with its tag links and media rows in one transaction.
// Tags are created on first use. Nothing is written if any insert fails.
func (s *Store) CreateNote(ctx context.Context, n *domain.Note, tags []string, media []*domain.Media) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.Body,
		nullString(n.DriverID),
		nullString(n.SessionID),
		string(n.Category),
		boolInt(n.Shared),
		nullString(n.UserID),
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
	)
	if err != nil {
		return mapWriteError(err)
	}

	if err := linkTags(ctx, tx, n.ID, tags); err != nil {
		return err
	}
	if err := insertMedia(ctx, tx, media); err != nil {
		return err
	}

	return tx.Commit()
}

// GetNote retrieves a note by ID.
func (s *Store) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

// UpdateNote rewrites the mutable note fields. When tags is non-nil the tag
// links are replaced by it; a nil slice leaves them untouched.
func (s *Store) UpdateNote(ctx context.Context, n *domain.Note, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE notes SET
			body = ?, driver_id = ?, session_id = ?, category = ?, shared = ?, updated_at = ?
		WHERE id = ?`,
		n.Body,
		nullString(n.DriverID),
		nullString(n.SessionID),
		string(n.Category),
		boolInt(n.Shared),
		formatTime(n.UpdatedAt),
		n.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}

	if tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, n.ID); err != nil {
			return fmt.Errorf("delete note_tags: %w", err)
		}
		if err := linkTags(ctx, tx, n.ID, tags); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note. Media, tag links, likes and replies go with it
// through ON DELETE CASCADE. The removed media rows are returned so the caller
// can delete their blobs.
func (s *Store) DeleteNote(ctx context.Context, id string) ([]*domain.Media, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	media, err := queryMedia(ctx, tx, `WHERE note_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return media, nil
}

// GetNoteTags returns the tag labels linked to a note in label order.
func (s *Store) GetNoteTags(ctx context.Context, noteID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.label FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY t.label`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query note_tags: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan note_tag: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
