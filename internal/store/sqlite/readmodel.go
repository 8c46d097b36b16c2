package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// noteDetailsColumns is the column order of notes_with_details. Must match scanNoteDetails.
const noteDetailsColumns = `id, body, driver_id, session_id, category, shared, user_id, created_at, updated_at,
	driver_name, session_date, session_type, track_id, track_name, track_type, series_id, series_name,
	tags, media, like_count, reply_count, media_count`

// liveNoteDetails computes read model rows from the base tables.
// A note is attributed to its session's series when it has a session, else to its driver's series.
const liveNoteDetails = `
	SELECT
		n.id, n.body, n.driver_id, n.session_id, n.category, n.shared, n.user_id, n.created_at, n.updated_at,
		d.name, s.date, s.type, t.id, t.name, t.type,
		COALESCE(ss.id, ds.id), COALESCE(ss.name, ds.name),
		(SELECT json_group_array(label) FROM (
			SELECT tg.label FROM note_tags nt JOIN tags tg ON tg.id = nt.tag_id
			WHERE nt.note_id = n.id ORDER BY tg.label
		)),
		(SELECT json_group_array(json_object(
			'id', m.id,
			'file_url', m.file_url,
			'thumbnail_url', COALESCE(m.thumbnail_url, ''),
			'type', m.type,
			'filename', m.filename,
			'size_mb', m.size_mb,
			'blurhash', COALESCE(m.blurhash, '')
		)) FROM (SELECT * FROM media WHERE note_id = n.id ORDER BY created_at, id) m),
		(SELECT COUNT(*) FROM likes WHERE note_id = n.id),
		(SELECT COUNT(*) FROM replies WHERE note_id = n.id),
		(SELECT COUNT(*) FROM media WHERE note_id = n.id)
	FROM notes n
	LEFT JOIN drivers d ON d.id = n.driver_id
	LEFT JOIN sessions s ON s.id = n.session_id
	LEFT JOIN tracks t ON t.id = s.track_id
	LEFT JOIN series ss ON ss.id = s.series_id
	LEFT JOIN series ds ON ds.id = d.series_id`

func scanNoteDetails(scanner interface{ Scan(dest ...any) error }) (*domain.NoteDetails, error) {
	var (
		nd          domain.NoteDetails
		driverID    sql.NullString
		sessionID   sql.NullString
		userID      sql.NullString
		shared      int
		createdAt   string
		updatedAt   string
		driverName  sql.NullString
		sessionDate sql.NullString
		sessionType sql.NullString
		trackID     sql.NullString
		trackName   sql.NullString
		trackType   sql.NullString
		seriesID    sql.NullString
		seriesName  sql.NullString
		tagsJSON    string
		mediaJSON   string
	)
	err := scanner.Scan(
		&nd.ID, &nd.Body, &driverID, &sessionID, &nd.Category, &shared, &userID, &createdAt, &updatedAt,
		&driverName, &sessionDate, &sessionType, &trackID, &trackName, &trackType, &seriesID, &seriesName,
		&tagsJSON, &mediaJSON, &nd.LikeCount, &nd.ReplyCount, &nd.MediaCount,
	)
	if err != nil {
		return nil, err
	}

	nd.DriverID = driverID.String
	nd.SessionID = sessionID.String
	nd.UserID = userID.String
	nd.Shared = shared != 0
	nd.DriverName = driverName.String
	nd.SessionType = domain.SessionType(sessionType.String)
	nd.TrackID = trackID.String
	nd.TrackName = trackName.String
	nd.TrackType = domain.TrackType(trackType.String)
	nd.SeriesID = seriesID.String
	nd.SeriesName = seriesName.String

	if nd.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if nd.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if nd.SessionDate, err = parseNullableDate(sessionDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &nd.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(mediaJSON), &nd.Media); err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	if nd.Tags == nil {
		nd.Tags = []string{}
	}
	if nd.Media == nil {
		nd.Media = []domain.MediaSummary{}
	}
	return &nd, nil
}

func (s *Store) queryNoteDetails(ctx context.Context, query string, args ...any) ([]*domain.NoteDetails, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.NoteDetails{}
	for rows.Next() {
		nd, err := scanNoteDetails(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, nd)
	}
	return items, rows.Err()
}

// RefreshNoteDetails rebuilds notes_with_details from the base tables in one
// transaction and records the refresh time. Returns the number of rows.
func (s *Store) RefreshNoteDetails(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes_with_details`); err != nil {
		return 0, fmt.Errorf("clear read model: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO notes_with_details (`+noteDetailsColumns+`)`+liveNoteDetails)
	if err != nil {
		return 0, fmt.Errorf("rebuild read model: %w", err)
	}
	rows, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `
		UPDATE read_model_state
		SET refreshed_at = ?, refreshed_version = write_version
		WHERE id = 1`, formatTime(time.Now().UTC())); err != nil {
		return 0, fmt.Errorf("record refresh: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(rows), nil
}

// ReadModelState reports when notes_with_details was last rebuilt and whether
// writes have happened since.
func (s *Store) ReadModelState(ctx context.Context) (*domain.ReadModelState, error) {
	var (
		state            domain.ReadModelState
		refreshedAt      sql.NullString
		writeVersion     int64
		refreshedVersion int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT refreshed_at, write_version, refreshed_version,
			(SELECT COUNT(*) FROM notes_with_details)
		FROM read_model_state WHERE id = 1`,
	).Scan(&refreshedAt, &writeVersion, &refreshedVersion, &state.Rows)
	if err != nil {
		return nil, err
	}
	if state.RefreshedAt, err = parseNullableTime(refreshedAt); err != nil {
		return nil, err
	}
	state.Stale = writeVersion != refreshedVersion
	return &state, nil
}

// GetNoteDetails reads one note from the read model. Notes created after the
// last refresh return store.ErrNotFound; use GetNoteDetailsLive for those.
func (s *Store) GetNoteDetails(ctx context.Context, id string) (*domain.NoteDetails, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteDetailsColumns+` FROM notes_with_details WHERE id = ?`, id)
	nd, err := scanNoteDetails(row)
	if err != nil {
		return nil, notFound(err)
	}
	return nd, nil
}

// GetNoteDetailsLive computes one note's details from the base tables.
func (s *Store) GetNoteDetailsLive(ctx context.Context, id string) (*domain.NoteDetails, error) {
	row := s.db.QueryRowContext(ctx, liveNoteDetails+` WHERE n.id = ?`, id)
	nd, err := scanNoteDetails(row)
	if err != nil {
		return nil, notFound(err)
	}
	return nd, nil
}

// ListNoteDetails loads read model rows by ID, preserving the order of ids.
func (s *Store) ListNoteDetails(ctx context.Context, ids []string) ([]*domain.NoteDetails, error) {
	if len(ids) == 0 {
		return []*domain.NoteDetails{}, nil
	}
	found, err := s.queryNoteDetails(ctx,
		`SELECT `+noteDetailsColumns+` FROM notes_with_details WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.NoteDetails, len(found))
	for _, nd := range found {
		byID[nd.ID] = nd
	}
	ordered := make([]*domain.NoteDetails, 0, len(found))
	for _, id := range ids {
		if nd, ok := byID[id]; ok {
			ordered = append(ordered, nd)
		}
	}
	return ordered, nil
}

// ListAllNoteDetails computes details for every note from the base tables.
// Used to rebuild the search index, which must not depend on refresh timing.
func (s *Store) ListAllNoteDetails(ctx context.Context) ([]*domain.NoteDetails, error) {
	return s.queryNoteDetails(ctx, liveNoteDetails+` ORDER BY n.created_at, n.id`)
}

// FeedNotes pages through notes_feed with the given filter, newest first.
func (s *Store) FeedNotes(ctx context.Context, filter domain.NoteFilter) (*domain.NotePage, error) {
	filter.Normalize()
	if filter.Query != "" && ftsQuery(filter.Query) == "" {
		// Punctuation only: no term can match.
		return filter.EmptyPage(), nil
	}
	clause, args := feedWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes_feed`+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count feed: %w", err)
	}

	items, err := s.queryNoteDetails(ctx,
		`SELECT `+noteDetailsColumns+` FROM notes_feed`+clause+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}

	return &domain.NotePage{
		Items:   items,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasNext: store.HasNext(total, filter.Limit, filter.Offset),
	}, nil
}

//nolint:gocyclo // One branch per optional filter.
func feedWhere(f domain.NoteFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if match := ftsQuery(f.Query); match != "" {
		where = append(where, `id IN (SELECT note_id FROM notes_fts WHERE notes_fts MATCH ?)`)
		args = append(args, match)
	}
	if f.TrackID != "" {
		where = append(where, "track_id = ?")
		args = append(args, f.TrackID)
	}
	if f.SeriesID != "" {
		where = append(where, "series_id = ?")
		args = append(args, f.SeriesID)
	}
	if f.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, f.DriverID)
	}
	if len(f.Tags) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(notes_feed.tags) WHERE json_each.value IN (`+placeholders(len(f.Tags))+`))`)
		args = append(args, stringArgs(f.Tags)...)
	}
	if len(f.Categories) > 0 {
		where = append(where, `category IN (`+placeholders(len(f.Categories))+`)`)
		for _, c := range f.Categories {
			args = append(args, string(c))
		}
	}
	if len(f.SessionTypes) > 0 {
		where = append(where, `session_type IN (`+placeholders(len(f.SessionTypes))+`)`)
		for _, t := range f.SessionTypes {
			args = append(args, string(t))
		}
	}
	// Comparisons against a NULL session_date are never true, so notes
	// without a session drop out of any date-ranged query.
	if f.SessionFrom != nil {
		where = append(where, "session_date >= ?")
		args = append(args, f.SessionFrom.Format(domain.SessionDateLayout))
	}
	if f.SessionTo != nil {
		where = append(where, "session_date <= ?")
		args = append(args, f.SessionTo.Format(domain.SessionDateLayout))
	}
	if f.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(*f.CreatedTo))
	}
	if f.SharedOnly {
		where = append(where, "shared = 1")
	}
	if f.HasMedia != nil {
		if *f.HasMedia {
			where = append(where, "media_count > 0")
		} else {
			where = append(where, "media_count = 0")
		}
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

var ftsTerm = regexp.MustCompile(`[\p{L}\p{N}]+`)

// ftsQuery turns free text into an FTS5 expression. Every word is quoted so
// operators in user input are matched literally; all words must match.
func ftsQuery(q string) string {
	terms := ftsTerm.FindAllString(strings.ToLower(q), -1)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = `"` + t + `"`
	}
	return strings.Join(parts, " ")
}
