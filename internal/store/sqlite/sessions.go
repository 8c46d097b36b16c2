package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// sessionColumns selects a session joined with its track and series names.
// Must match the scan order in scanSession.
const sessionColumns = `s.id, s.date, s.type, s.track_id, s.series_id, t.name, sr.name, s.created_at`

const sessionFrom = ` FROM sessions s
	JOIN tracks t ON t.id = s.track_id
	JOIN series sr ON sr.id = s.series_id`

func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	var (
		sess      domain.Session
		date      string
		createdAt string
	)
	err := scanner.Scan(
		&sess.ID,
		&date,
		&sess.Type,
		&sess.TrackID,
		&sess.SeriesID,
		&sess.TrackName,
		&sess.SeriesName,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	if sess.Date, err = time.Parse(domain.SessionDateLayout, date); err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// CreateSession inserts a session.
// Returns store.ErrInvalidReference when the track or series does not exist.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, date, type, track_id, series_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Date.Format(domain.SessionDateLayout),
		string(sess.Type),
		sess.TrackID,
		sess.SeriesID,
		formatTime(sess.CreatedAt),
	)
	return mapWriteError(err)
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+sessionFrom+` WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, notFound(err)
	}
	return sess, nil
}

// ListSessions returns sessions newest first.
func (s *Store) ListSessions(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, error) {
	var (
		where []string
		args  []any
	)
	if filter.TrackID != "" {
		where = append(where, "s.track_id = ?")
		args = append(args, filter.TrackID)
	}
	if filter.SeriesID != "" {
		where = append(where, "s.series_id = ?")
		args = append(args, filter.SeriesID)
	}
	if filter.Type != "" {
		where = append(where, "s.type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT ` + sessionColumns + sessionFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.date DESC, t.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*domain.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
