package sqlite

import (
	"context"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// trackColumns must match the scan order in scanTrack.
const trackColumns = `id, name, type, created_at`

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*domain.Track, error) {
	var (
		t         domain.Track
		createdAt string
	)
	if err := scanner.Scan(&t.ID, &t.Name, &t.Type, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTrack inserts a track. Returns store.ErrAlreadyExists on duplicate name.
func (s *Store) CreateTrack(ctx context.Context, t *domain.Track) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, name, type, created_at)
		VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, string(t.Type), formatTime(t.CreatedAt),
	)
	return mapWriteError(err)
}

// GetTrack retrieves a track by ID.
// Returns store.ErrNotFound if the track does not exist.
func (s *Store) GetTrack(ctx context.Context, id string) (*domain.Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListTracks returns all tracks ordered by name.
func (s *Store) ListTracks(ctx context.Context) ([]*domain.Track, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := []*domain.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
