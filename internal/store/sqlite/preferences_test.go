package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

func TestPreferences_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFixtures(t, s)

	if _, err := s.GetPreferences(ctx, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first save, got %v", err)
	}

	p := domain.DefaultPreferences()
	p.FavoriteDriverID = f.larson.ID
	p.UpdatedAt = time.Now()
	if err := s.UpsertPreferences(ctx, p); err != nil {
		t.Fatalf("UpsertPreferences: %v", err)
	}

	p.PageSize = 50
	p.Theme = "dark"
	if err := s.UpsertPreferences(ctx, p); err != nil {
		t.Fatalf("UpsertPreferences (update): %v", err)
	}

	if n := countRows(t, s, `SELECT COUNT(*) FROM user_preferences`); n != 1 {
		t.Errorf("expected a single preferences row, got %d", n)
	}

	got, err := s.GetPreferences(ctx, "")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if got.PageSize != 50 || got.Theme != "dark" || got.FavoriteDriverID != f.larson.ID {
		t.Errorf("unexpected preferences: %+v", got)
	}
	if got.DefaultCategory != domain.CategoryGeneral {
		t.Errorf("DefaultCategory: got %q", got.DefaultCategory)
	}
}

func TestPreferences_RejectsBadValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := domain.DefaultPreferences()
	p.FavoriteTrackID = "missing"
	p.UpdatedAt = time.Now()
	if err := s.UpsertPreferences(ctx, p); !errors.Is(err, store.ErrInvalidReference) {
		t.Errorf("expected ErrInvalidReference, got %v", err)
	}

	p = domain.DefaultPreferences()
	p.PageSize = 1000
	p.UpdatedAt = time.Now()
	if err := s.UpsertPreferences(ctx, p); err == nil {
		t.Error("expected page size CHECK to fail")
	}
}
