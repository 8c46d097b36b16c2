package sqlite

import (
	"context"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

const seriesColumns = `id, name, created_at`

func scanSeries(scanner interface{ Scan(dest ...any) error }) (*domain.Series, error) {
	var (
		sr        domain.Series
		createdAt string
	)
	if err := scanner.Scan(&sr.ID, &sr.Name, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if sr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &sr, nil
}

// CreateSeries inserts a series. Returns store.ErrAlreadyExists on duplicate name.
func (s *Store) CreateSeries(ctx context.Context, sr *domain.Series) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO series (id, name, created_at)
		VALUES (?, ?, ?)`,
		sr.ID, sr.Name, formatTime(sr.CreatedAt),
	)
	return mapWriteError(err)
}

// GetSeries retrieves a series by ID.
func (s *Store) GetSeries(ctx context.Context, id string) (*domain.Series, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = ?`, id)
	sr, err := scanSeries(row)
	if err != nil {
		return nil, notFound(err)
	}
	return sr, nil
}

// ListSeries returns all series ordered by name.
func (s *Store) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+seriesColumns+` FROM series ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*domain.Series{}
	for rows.Next() {
		sr, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sr)
	}
	return list, rows.Err()
}
