package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/id"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixtures holds reference rows shared by note tests.
type fixtures struct {
	cup      *domain.Series
	xfinity  *domain.Series
	daytona  *domain.Track
	martinsv *domain.Track
	larson   *domain.Driver
	allgaier *domain.Driver
	dayQual  *domain.Session
	dayRace  *domain.Session
	martRace *domain.Session
}

func seedFixtures(t *testing.T, s *Store) *fixtures {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	f := &fixtures{}

	mustSeries := func(name string) *domain.Series {
		sr := &domain.Series{ID: id.New(), Name: name, CreatedAt: now}
		if err := s.CreateSeries(ctx, sr); err != nil {
			t.Fatalf("CreateSeries %s: %v", name, err)
		}
		return sr
	}
	mustTrack := func(name string, typ domain.TrackType) *domain.Track {
		tr := &domain.Track{ID: id.New(), Name: name, Type: typ, CreatedAt: now}
		if err := s.CreateTrack(ctx, tr); err != nil {
			t.Fatalf("CreateTrack %s: %v", name, err)
		}
		return tr
	}
	mustDriver := func(name string, sr *domain.Series) *domain.Driver {
		d := &domain.Driver{ID: id.New(), Name: name, SeriesID: sr.ID, CreatedAt: now}
		if err := s.CreateDriver(ctx, d); err != nil {
			t.Fatalf("CreateDriver %s: %v", name, err)
		}
		return d
	}
	mustSession := func(date string, typ domain.SessionType, tr *domain.Track, sr *domain.Series) *domain.Session {
		day, err := time.Parse(domain.SessionDateLayout, date)
		if err != nil {
			t.Fatalf("parse date: %v", err)
		}
		sess := &domain.Session{ID: id.New(), Date: day, Type: typ, TrackID: tr.ID, SeriesID: sr.ID, CreatedAt: now}
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		return sess
	}

	f.cup = mustSeries("NASCAR Cup Series")
	f.xfinity = mustSeries("NASCAR Xfinity Series")
	f.daytona = mustTrack("Daytona International Speedway", domain.TrackSuperspeedway)
	f.martinsv = mustTrack("Martinsville Speedway", domain.TrackShort)
	f.larson = mustDriver("Kyle Larson", f.cup)
	f.allgaier = mustDriver("Justin Allgaier", f.xfinity)
	f.dayQual = mustSession("2025-02-15", domain.SessionQualifying, f.daytona, f.cup)
	f.dayRace = mustSession("2025-02-16", domain.SessionRace, f.daytona, f.cup)
	f.martRace = mustSession("2025-03-30", domain.SessionRace, f.martinsv, f.cup)
	return f
}

// newNote builds a note created at the given offset from a fixed base time.
func newNote(body string, offset time.Duration) *domain.Note {
	created := time.Date(2025, 2, 20, 12, 0, 0, 0, time.UTC).Add(offset)
	return &domain.Note{
		ID:        id.New(),
		Body:      body,
		Category:  domain.CategoryGeneral,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newMedia(noteID, key string) *domain.Media {
	return &domain.Media{
		ID:          id.New(),
		NoteID:      noteID,
		FileURL:     "http://localhost:8080/media/" + key,
		ObjectKey:   key,
		Type:        domain.MediaImage,
		ContentType: "image/jpeg",
		SizeMB:      1.25,
		Filename:    "pit.jpg",
		Width:       1920,
		Height:      1080,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	tables := []string{
		"tracks", "series", "drivers", "sessions", "notes", "media", "tags", "note_tags",
		"likes", "replies", "user_preferences", "pending_blob_deletions",
		"notes_with_details", "read_model_state", "notes_fts",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	for _, view := range []string{"notes_feed", "media_search"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='view' AND name=?", view).Scan(&name)
		if err != nil {
			t.Errorf("view %s not found: %v", view, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	// The schema must apply cleanly to an existing database.
	s, err = Open(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s.Close()
}

func TestFormatTime_LexicalOrder(t *testing.T) {
	a := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	if !(formatTime(a) < formatTime(b)) {
		t.Errorf("expected %s < %s", formatTime(a), formatTime(b))
	}

	parsed, err := parseTime(formatTime(b))
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !parsed.Equal(b) {
		t.Errorf("round trip: got %v, want %v", parsed, b)
	}
}
