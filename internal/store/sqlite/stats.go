package sqlite

import (
	"context"
	"math"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// GetStats counts the notebook's rows and sums stored media size.
func (s *Store) GetStats(ctx context.Context) (*domain.Stats, error) {
	var st domain.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM notes),
			(SELECT COUNT(*) FROM media),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(*) FROM drivers),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COALESCE(SUM(size_mb), 0) FROM media)`,
	).Scan(&st.Notes, &st.Media, &st.Tags, &st.Drivers, &st.Sessions, &st.StorageMB)
	if err != nil {
		return nil, err
	}
	st.StorageMB = math.Round(st.StorageMB*100) / 100
	return &st, nil
}
