package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

func TestBlobDeletionLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []*domain.PendingBlobDeletion{
		{ObjectKey: "2025/02/a.jpg", FileURL: "http://x/a.jpg", Reason: "note deleted"},
		{ObjectKey: "2025/02/b.jpg", Reason: "upload rollback"},
	}
	if err := s.EnqueueBlobDeletions(ctx, items); err != nil {
		t.Fatalf("EnqueueBlobDeletions: %v", err)
	}
	// Re-enqueue is an upsert.
	if err := s.EnqueueBlobDeletions(ctx, items[:1]); err != nil {
		t.Fatalf("EnqueueBlobDeletions again: %v", err)
	}

	if err := s.FailBlobDeletion(ctx, "2025/02/a.jpg", "connection reset"); err != nil {
		t.Fatalf("FailBlobDeletion: %v", err)
	}

	pending, err := s.ListPendingBlobDeletions(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingBlobDeletions: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	byKey := map[string]*domain.PendingBlobDeletion{}
	for _, p := range pending {
		byKey[p.ObjectKey] = p
	}
	a := byKey["2025/02/a.jpg"]
	if a == nil || a.Attempts != 1 || a.LastError != "connection reset" || a.FileURL != "http://x/a.jpg" {
		t.Errorf("unexpected entry: %+v", a)
	}

	if err := s.AckBlobDeletion(ctx, "2025/02/a.jpg"); err != nil {
		t.Fatalf("AckBlobDeletion: %v", err)
	}
	if err := s.AckBlobDeletion(ctx, "2025/02/a.jpg"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.FailBlobDeletion(ctx, "missing", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFixtures(t, s)

	n := newNote("stats", 0)
	if err := s.CreateNote(ctx, n, []string{"a", "b"}, []*domain.Media{newMedia(n.ID, "k1"), newMedia(n.ID, "k2")}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.Notes != 1 || st.Media != 2 || st.Tags != 2 || st.Drivers != 2 || st.Sessions != 3 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.StorageMB != 2.5 {
		t.Errorf("StorageMB: got %v, want 2.5", st.StorageMB)
	}
}
