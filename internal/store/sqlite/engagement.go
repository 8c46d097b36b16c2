package sqlite

import (
	"context"
	"database/sql"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// AddLike records a like. Returns store.ErrAlreadyExists when the user already
// liked the note and store.ErrInvalidReference when the note does not exist.
func (s *Store) AddLike(ctx context.Context, like *domain.Like) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (id, note_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		like.ID, like.NoteID, nullString(like.UserID), formatTime(like.CreatedAt),
	)
	return mapWriteError(err)
}

// RemoveLike deletes the user's like on a note. An empty userID is the local user.
func (s *Store) RemoveLike(ctx context.Context, noteID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM likes WHERE note_id = ? AND user_id IS ?`,
		noteID, nullString(userID),
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const replyColumns = `id, note_id, user_id, body, created_at`

func scanReply(scanner interface{ Scan(dest ...any) error }) (*domain.Reply, error) {
	var (
		r         domain.Reply
		userID    sql.NullString
		createdAt string
	)
	if err := scanner.Scan(&r.ID, &r.NoteID, &userID, &r.Body, &createdAt); err != nil {
		return nil, err
	}
	r.UserID = userID.String
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReply inserts a reply. Returns store.ErrInvalidReference when the note does not exist.
func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replies (`+replyColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.NoteID, nullString(r.UserID), r.Body, formatTime(r.CreatedAt),
	)
	return mapWriteError(err)
}

// GetReply retrieves a reply by ID.
func (s *Store) GetReply(ctx context.Context, id string) (*domain.Reply, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = ?`, id)
	r, err := scanReply(row)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// ListReplies returns a note's replies oldest first.
func (s *Store) ListReplies(ctx context.Context, noteID string, limit, offset int) ([]*domain.Reply, error) {
	limit, offset = store.ClampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+replyColumns+` FROM replies
		WHERE note_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`, noteID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []*domain.Reply{}
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// DeleteReply removes a reply.
func (s *Store) DeleteReply(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM replies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
