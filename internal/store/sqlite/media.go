package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// mediaColumns must match the scan order in scanMedia.
const mediaColumns = `id, note_id, file_url, object_key, thumbnail_url, thumbnail_key, type, content_type,
	size_mb, filename, width, height, duration_seconds, blurhash, created_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*domain.Media, error) {
	var (
		m            domain.Media
		thumbnailURL sql.NullString
		thumbnailKey sql.NullString
		blurhash     sql.NullString
		createdAt    string
	)
	err := scanner.Scan(
		&m.ID,
		&m.NoteID,
		&m.FileURL,
		&m.ObjectKey,
		&thumbnailURL,
		&thumbnailKey,
		&m.Type,
		&m.ContentType,
		&m.SizeMB,
		&m.Filename,
		&m.Width,
		&m.Height,
		&m.DurationSeconds,
		&blurhash,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	m.ThumbnailURL = thumbnailURL.String
	m.ThumbnailKey = thumbnailKey.String
	m.Blurhash = blurhash.String
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func queryMedia(ctx context.Context, q querier, suffix string, args ...any) ([]*domain.Media, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media `+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("query media: %w", err)
	}
	defer rows.Close()

	media := []*domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func insertMedia(ctx context.Context, tx *sql.Tx, media []*domain.Media) error {
	for _, m := range media {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media (`+mediaColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID,
			m.NoteID,
			m.FileURL,
			m.ObjectKey,
			nullString(m.ThumbnailURL),
			nullString(m.ThumbnailKey),
			string(m.Type),
			m.ContentType,
			m.SizeMB,
			m.Filename,
			m.Width,
			m.Height,
			m.DurationSeconds,
			nullString(m.Blurhash),
			formatTime(m.CreatedAt),
		)
		if err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

// AddMedia attaches media rows to an existing note in one transaction.
// Returns store.ErrInvalidReference when the note does not exist.
func (s *Store) AddMedia(ctx context.Context, noteID string, media []*domain.Media) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range media {
		m.NoteID = noteID
	}
	if err := insertMedia(ctx, tx, media); err != nil {
		return err
	}

	// Attaching media counts as an edit of the note.
	if _, err := tx.ExecContext(ctx, `UPDATE notes SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), noteID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetMedia retrieves a media row by ID.
func (s *Store) GetMedia(ctx context.Context, id string) (*domain.Media, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	m, err := scanMedia(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// ListNoteMedia returns a note's media in upload order.
func (s *Store) ListNoteMedia(ctx context.Context, noteID string) ([]*domain.Media, error) {
	return queryMedia(ctx, s.db, `WHERE note_id = ? ORDER BY created_at, id`, noteID)
}

// DeleteMedia removes one media row and returns it so the caller can delete the blob.
func (s *Store) DeleteMedia(ctx context.Context, id string) (*domain.Media, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m, err := scanMedia(tx.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReferencedObjectKeys returns every blob key still owned by a media row,
// thumbnails included.
func (s *Store) ReferencedObjectKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_key FROM media
		UNION
		SELECT thumbnail_key FROM media WHERE thumbnail_key IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

// mediaSearchColumns must match the scan order in scanMediaResult.
const mediaSearchColumns = `id, note_id, file_url, object_key, thumbnail_url, thumbnail_key, type, content_type,
	size_mb, filename, width, height, duration_seconds, blurhash, created_at,
	note_body, category, driver_id, driver_name, track_id, track_name, series_id, series_name, session_date`

func scanMediaResult(scanner interface{ Scan(dest ...any) error }) (*domain.MediaSearchResult, error) {
	var (
		r            domain.MediaSearchResult
		thumbnailURL sql.NullString
		thumbnailKey sql.NullString
		blurhash     sql.NullString
		createdAt    string
		driverID     sql.NullString
		driverName   sql.NullString
		trackID      sql.NullString
		trackName    sql.NullString
		seriesID     sql.NullString
		seriesName   sql.NullString
		sessionDate  sql.NullString
	)
	err := scanner.Scan(
		&r.ID, &r.NoteID, &r.FileURL, &r.ObjectKey, &thumbnailURL, &thumbnailKey,
		&r.Type, &r.ContentType, &r.SizeMB, &r.Filename, &r.Width, &r.Height,
		&r.DurationSeconds, &blurhash, &createdAt,
		&r.NoteBody, &r.Category, &driverID, &driverName, &trackID, &trackName,
		&seriesID, &seriesName, &sessionDate,
	)
	if err != nil {
		return nil, err
	}
	r.ThumbnailURL = thumbnailURL.String
	r.ThumbnailKey = thumbnailKey.String
	r.Blurhash = blurhash.String
	r.DriverID = driverID.String
	r.DriverName = driverName.String
	r.TrackID = trackID.String
	r.TrackName = trackName.String
	r.SeriesID = seriesID.String
	r.SeriesName = seriesName.String
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.SessionDate, err = parseNullableDate(sessionDate); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) queryMediaResults(ctx context.Context, query string, args ...any) ([]*domain.MediaSearchResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*domain.MediaSearchResult{}
	for rows.Next() {
		r, err := scanMediaResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchMedia queries the media_search view. Query matches filename or note body
// as a case-insensitive substring. Returns the page and the total match count.
func (s *Store) SearchMedia(ctx context.Context, filter domain.MediaFilter) ([]*domain.MediaSearchResult, int, error) {
	filter.Normalize()

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(filename LIKE ? ESCAPE '\' OR note_body LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, filter.DriverID)
	}
	if filter.TrackID != "" {
		where = append(where, "track_id = ?")
		args = append(args, filter.TrackID)
	}
	if filter.SeriesID != "" {
		where = append(where, "series_id = ?")
		args = append(args, filter.SeriesID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_search`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count media: %w", err)
	}

	results, err := s.queryMediaResults(ctx,
		`SELECT `+mediaSearchColumns+` FROM media_search`+clause+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// ListMediaResults loads media_search rows by ID, preserving the order of ids.
// Unknown IDs are skipped.
func (s *Store) ListMediaResults(ctx context.Context, ids []string) ([]*domain.MediaSearchResult, error) {
	if len(ids) == 0 {
		return []*domain.MediaSearchResult{}, nil
	}
	found, err := s.queryMediaResults(ctx,
		`SELECT `+mediaSearchColumns+` FROM media_search WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.MediaSearchResult, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	ordered := make([]*domain.MediaSearchResult, 0, len(found))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// ListAllMediaResults returns every media_search row. Used to rebuild the search index.
func (s *Store) ListAllMediaResults(ctx context.Context) ([]*domain.MediaSearchResult, error) {
	return s.queryMediaResults(ctx, `SELECT `+mediaSearchColumns+` FROM media_search ORDER BY created_at, id`)
}
