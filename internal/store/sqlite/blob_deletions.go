package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// EnqueueBlobDeletions records blobs that still need deleting. Re-enqueueing a
// key keeps its attempt count and refreshes the reason.
func (s *Store) EnqueueBlobDeletions(ctx context.Context, items []*domain.PendingBlobDeletion) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, item := range items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pending_blob_deletions
				(object_key, file_url, reason, attempts, last_error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(object_key) DO UPDATE SET
				reason = excluded.reason,
				last_error = COALESCE(excluded.last_error, pending_blob_deletions.last_error),
				updated_at = excluded.updated_at`,
			item.ObjectKey,
			nullString(item.FileURL),
			item.Reason,
			item.Attempts,
			nullString(item.LastError),
			formatTime(item.CreatedAt),
			formatTime(item.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", item.ObjectKey, err)
		}
	}

	return tx.Commit()
}

// ListPendingBlobDeletions returns the oldest pending deletions first.
func (s *Store) ListPendingBlobDeletions(ctx context.Context, limit int) ([]*domain.PendingBlobDeletion, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_key, file_url, reason, attempts, last_error, created_at, updated_at
		FROM pending_blob_deletions
		ORDER BY created_at ASC, object_key ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.PendingBlobDeletion{}
	for rows.Next() {
		var (
			item      domain.PendingBlobDeletion
			fileURL   sql.NullString
			lastErr   sql.NullString
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&item.ObjectKey, &fileURL, &item.Reason, &item.Attempts, &lastErr, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		item.FileURL = fileURL.String
		item.LastError = lastErr.String
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// AckBlobDeletion removes a ledger entry after its blob is gone.
func (s *Store) AckBlobDeletion(ctx context.Context, objectKey string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_blob_deletions WHERE object_key = ?`, objectKey)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FailBlobDeletion records another failed attempt.
func (s *Store) FailBlobDeletion(ctx context.Context, objectKey, lastErr string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_blob_deletions
		SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE object_key = ?`,
		lastErr, formatTime(time.Now().UTC()), objectKey,
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
