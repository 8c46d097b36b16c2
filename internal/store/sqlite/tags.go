package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/id"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// tagColumns selects a tag with its usage count. Must match scanTag.
const tagColumns = `t.id, t.label, t.created_at, (SELECT COUNT(*) FROM note_tags nt WHERE nt.tag_id = t.id)`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t         domain.Tag
		createdAt string
	)
	if err := scanner.Scan(&t.ID, &t.Label, &createdAt, &t.NoteCount); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// linkTags gets or creates each label and links it to the note.
// Labels must already be normalized; duplicates are ignored.
func linkTags(ctx context.Context, tx *sql.Tx, noteID string, labels []string) error {
	now := formatTime(time.Now().UTC())
	for _, label := range labels {
		// ON CONFLICT keeps concurrent creators of the same label from failing.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tags (id, label, created_at) VALUES (?, ?, ?)
			ON CONFLICT(label) DO NOTHING`,
			id.New(), label, now,
		)
		if err != nil {
			return mapWriteError(err)
		}

		var tagID string
		if err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE label = ?`, label).Scan(&tagID); err != nil {
			return fmt.Errorf("lookup tag %q: %w", label, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO note_tags (note_id, tag_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT(note_id, tag_id) DO NOTHING`,
			noteID, tagID, now,
		)
		if err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

func (s *Store) queryTags(ctx context.Context, query string, args ...any) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListTags returns all tags ordered by label.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return s.queryTags(ctx, `SELECT `+tagColumns+` FROM tags t ORDER BY t.label ASC`)
}

// PopularTags returns the most used tags. Unused tags are omitted.
func (s *Store) PopularTags(ctx context.Context, limit int) ([]*domain.Tag, error) {
	limit, _ = store.ClampPage(limit, 0)
	return s.queryTags(ctx, `
		SELECT `+tagColumns+` FROM tags t
		WHERE EXISTS (SELECT 1 FROM note_tags nt WHERE nt.tag_id = t.id)
		ORDER BY 4 DESC, t.label ASC
		LIMIT ?`, limit)
}

// SearchTags returns tags whose label contains query. Prefix matches sort first.
func (s *Store) SearchTags(ctx context.Context, query string, limit int) ([]*domain.Tag, error) {
	limit, _ = store.ClampPage(limit, 0)
	q := escapeLike(strings.ToLower(strings.TrimSpace(query)))
	return s.queryTags(ctx, `
		SELECT `+tagColumns+` FROM tags t
		WHERE t.label LIKE ? ESCAPE '\'
		ORDER BY (t.label LIKE ? ESCAPE '\') DESC, 4 DESC, t.label ASC
		LIMIT ?`, "%"+q+"%", q+"%", limit)
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
