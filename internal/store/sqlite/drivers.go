package sqlite

import (
	"context"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// driverColumns selects a driver joined with its series name.
// Must match the scan order in scanDriver.
const driverColumns = `d.id, d.name, d.series_id, sr.name, d.created_at`

const driverFrom = ` FROM drivers d JOIN series sr ON sr.id = d.series_id`

func scanDriver(scanner interface{ Scan(dest ...any) error }) (*domain.Driver, error) {
	var (
		d         domain.Driver
		createdAt string
	)
	if err := scanner.Scan(&d.ID, &d.Name, &d.SeriesID, &d.SeriesName, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDriver inserts a driver.
// Returns store.ErrAlreadyExists when the name is taken within the series and
// store.ErrInvalidReference when the series does not exist.
func (s *Store) CreateDriver(ctx context.Context, d *domain.Driver) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drivers (id, name, series_id, created_at)
		VALUES (?, ?, ?, ?)`,
		d.ID, d.Name, d.SeriesID, formatTime(d.CreatedAt),
	)
	return mapWriteError(err)
}

// GetDriver retrieves a driver by ID.
func (s *Store) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+driverColumns+driverFrom+` WHERE d.id = ?`, id)
	d, err := scanDriver(row)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// ListDrivers returns drivers ordered by name, optionally restricted to one series.
func (s *Store) ListDrivers(ctx context.Context, seriesID string) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + driverFrom
	var args []any
	if seriesID != "" {
		query += ` WHERE d.series_id = ?`
		args = append(args, seriesID)
	}
	query += ` ORDER BY d.name ASC, sr.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := []*domain.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}
