package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteService_CreateQualifyingScenario(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{
		Body:      "Great qualifying run",
		Tags:      []string{"qualifying", "setup"},
		DriverID:  f.larson.ID,
		SessionID: f.daytonaQ.ID,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Great qualifying run", note.Body)
	assert.Equal(t, domain.CategoryGeneral, note.Category)
	assert.Equal(t, []string{"qualifying", "setup"}, note.Tags)
	assert.Equal(t, "Kyle Larson", note.DriverName)
	assert.Equal(t, "Daytona International Speedway", note.TrackName)
	assert.Equal(t, domain.SessionQualifying, note.SessionType)
	assert.Equal(t, f.cup.ID, note.SeriesID)
	assert.Empty(t, note.Media)

	page, err := env.notes.Feed(ctx, domain.NoteFilter{Query: "qualifying"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, note.ID, page.Items[0].ID)

	page, err = env.notes.Feed(ctx, domain.NoteFilter{Query: "strategy"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestNoteService_CreateMergesHashtagsAndConvertsHTML(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{
		Body:     "<p>Loose off turn 2, try more <b>wedge</b> #Setup #fuel</p>",
		Category: "Strategy",
		Tags:     []string{" Handling "},
	}, nil)
	require.NoError(t, err)

	assert.NotContains(t, note.Body, "<p>")
	assert.Contains(t, note.Body, "**wedge**")
	assert.Equal(t, domain.CategoryStrategy, note.Category)
	assert.ElementsMatch(t, []string{"handling", "setup", "fuel"}, note.Tags)
}

func TestNoteService_CreateValidation(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateNoteRequest
		code domainerrors.Code
	}{
		{"blank body", CreateNoteRequest{Body: "   "}, domainerrors.CodeValidation},
		{"body too long", CreateNoteRequest{Body: strings.Repeat("a", domain.MaxNoteBodyLength+1)}, domainerrors.CodeValidation},
		{"unknown category", CreateNoteRequest{Body: "ok", Category: "Gossip"}, domainerrors.CodeValidation},
		{"missing driver", CreateNoteRequest{Body: "ok", DriverID: "nope"}, domainerrors.CodeInvalidReference},
		{"missing session", CreateNoteRequest{Body: "ok", DriverID: f.larson.ID, SessionID: "nope"}, domainerrors.CodeInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.notes.Create(ctx, tt.req, nil)
			requireCode(t, err, tt.code)
		})
	}

	// Exactly the limit is accepted.
	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: strings.Repeat("é", domain.MaxNoteBodyLength)}, nil)
	require.NoError(t, err)
}

func TestNoteService_CreateWithMedia(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Turn 4 wreck"}, []media.Upload{
		pngUpload(t, "Turn 4 Wreck.png"),
	})
	require.NoError(t, err)

	require.Len(t, note.Media, 1)
	m := note.Media[0]
	assert.Equal(t, domain.MediaImage, m.Type)
	assert.True(t, strings.HasPrefix(m.FileURL, "http://localhost/media/"))
	assert.NotEmpty(t, m.ThumbnailURL)
	assert.NotEmpty(t, m.Blurhash)
	assert.Equal(t, 1, note.MediaCount)

	// Original and thumbnail are stored.
	assert.Len(t, storedKeys(t, env), 2)

	stored, err := env.store.GetMedia(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, env.backend.Exists(stored.ObjectKey))
	assert.True(t, env.backend.Exists(stored.ThumbnailKey))
	assert.Equal(t, 64, stored.Width)
	assert.Equal(t, 48, stored.Height)
}

func TestNoteService_CreateRejectsBadFilesBeforeUploading(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	exe := media.Upload{Filename: "setup.exe", ContentType: "application/x-msdownload", Data: []byte("MZ\x90\x00")}
	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "bad file"}, []media.Upload{pngUpload(t, "ok.png"), exe})
	requireCode(t, err, domainerrors.CodeUnsupportedType)

	huge := pngUpload(t, "huge.png")
	huge.Size = 150 * 1024 * 1024
	_, err = env.notes.Create(ctx, CreateNoteRequest{Body: "huge file"}, []media.Upload{huge})
	requireCode(t, err, domainerrors.CodeFileTooLarge)

	corrupt := media.Upload{Filename: "broken.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nnot really")}
	_, err = env.notes.Create(ctx, CreateNoteRequest{Body: "corrupt file"}, []media.Upload{pngUpload(t, "ok.png"), corrupt})
	requireCode(t, err, domainerrors.CodeCompression)

	assert.Empty(t, storedKeys(t, env))
	stats, err := env.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Notes)
}

func TestNoteService_CreateRollsBackUploadsOnStorageFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// First file and its thumbnail succeed, the second file fails.
	env.backend.failPutAfter = 2

	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "two photos"}, []media.Upload{
		pngUpload(t, "one.png"),
		pngUpload(t, "two.png"),
	})
	requireCode(t, err, domainerrors.CodeStorage)

	assert.Empty(t, storedKeys(t, env))
	stats, err := env.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Notes)
}

func TestNoteService_CreateCompensatesWhenTransactionFails(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.notes.store = failingStore{Store: env.store}

	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "lost note"}, []media.Upload{pngUpload(t, "one.png")})
	requireCode(t, err, domainerrors.CodePersistence)

	assert.Empty(t, storedKeys(t, env))
}

func TestNoteService_FailedCompensationIsQueued(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.notes.store = failingStore{Store: env.store}
	env.backend.setFailDeletes(true)

	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "lost note"}, []media.Upload{pngUpload(t, "one.png")})
	requireCode(t, err, domainerrors.CodePersistence)

	pending, err := env.store.ListPendingBlobDeletions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	for _, p := range pending {
		assert.Equal(t, "create note failed", p.Reason)
		assert.Contains(t, p.LastError, "bucket unavailable")
	}
}

func TestNoteService_GetFallsBackToLiveJoin(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "fresh"}, nil)
	require.NoError(t, err)

	// A write behind the service's back leaves the read model stale.
	raw, err := env.store.GetNote(ctx, note.ID)
	require.NoError(t, err)
	raw.Body = "edited directly"
	raw.UpdatedAt = time.Now().UTC()
	require.NoError(t, env.store.UpdateNote(ctx, raw, nil))

	got, err := env.notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited directly", got.Body)

	_, err = env.notes.Get(ctx, "missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestNoteService_FeedFiltersAndInvalidation(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	daytona, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Draft lines at Daytona", SessionID: f.daytonaQ.ID}, nil)
	require.NoError(t, err)
	_, err = env.notes.Create(ctx, CreateNoteRequest{Body: "Talladega pack racing", SessionID: f.talladegaR.ID}, nil)
	require.NoError(t, err)
	_, err = env.notes.Create(ctx, CreateNoteRequest{Body: "No session at all"}, nil)
	require.NoError(t, err)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	page, err := env.notes.Feed(ctx, domain.NoteFilter{TrackID: f.daytona.ID, SessionFrom: &from, SessionTo: &to})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, daytona.ID, page.Items[0].ID)

	all, err := env.notes.Feed(ctx, domain.NoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	// A new note invalidates the cached page.
	_, err = env.notes.Create(ctx, CreateNoteRequest{Body: "Fourth"}, nil)
	require.NoError(t, err)
	all, err = env.notes.Feed(ctx, domain.NoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, "Fourth", all.Items[0].Body)

	_, err = env.notes.Feed(ctx, domain.NoteFilter{SessionFrom: &to, SessionTo: &from})
	requireCode(t, err, domainerrors.CodeValidation)
	_, err = env.notes.Feed(ctx, domain.NoteFilter{Categories: []domain.NoteCategory{"Gossip"}})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestNoteService_FeedFoldsTagFilter(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Pit road speeding", Tags: []string{"Setup", "Pénalty"}}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"setup", "penalty"}, note.Tags)

	for _, tags := range [][]string{{"Setup"}, {"setup"}, {" SETUP "}, {"PÉNALTY"}, {"penalty"}} {
		page, err := env.notes.Feed(ctx, domain.NoteFilter{Tags: tags})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total, "tags=%v", tags)
		assert.Equal(t, note.ID, page.Items[0].ID)
	}

	page, err := env.notes.Feed(ctx, domain.NoteFilter{Tags: []string{"!!!"}})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
}

func TestNoteService_FeedPunctuationQueryMatchesNothing(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Restart zone moved"}, nil)
	require.NoError(t, err)

	page, err := env.notes.Feed(ctx, domain.NoteFilter{Query: "???"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext)
}

func TestNoteService_FeedPaging(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "note"}, nil)
		require.NoError(t, err)
	}

	page, err := env.notes.Feed(ctx, domain.NoteFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasNext)

	page, err = env.notes.Feed(ctx, domain.NoteFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNext)
}

func TestNoteService_Update(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "first take", Tags: []string{"setup"}}, nil)
	require.NoError(t, err)

	body := "second take #tires"
	category := "Track Specific"
	shared := true
	updated, err := env.notes.Update(ctx, note.ID, UpdateNoteRequest{
		Body:     &body,
		Category: &category,
		DriverID: &f.elliott.ID,
		Shared:   &shared,
	})
	require.NoError(t, err)
	assert.Equal(t, body, updated.Body)
	assert.Equal(t, domain.CategoryTrackSpecific, updated.Category)
	assert.Equal(t, "Chase Elliott", updated.DriverName)
	assert.True(t, updated.Shared)
	// Hashtags extend the existing tags.
	assert.ElementsMatch(t, []string{"setup", "tires"}, updated.Tags)

	// Supplied tags replace the set.
	tags := []string{"strategy"}
	updated, err = env.notes.Update(ctx, note.ID, UpdateNoteRequest{Tags: &tags})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"strategy", "tires"}, updated.Tags)

	// Clearing the driver.
	empty := ""
	updated, err = env.notes.Update(ctx, note.ID, UpdateNoteRequest{DriverID: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.DriverID)

	page, err := env.notes.Feed(ctx, domain.NoteFilter{Query: "strategy"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	_, err = env.notes.Update(ctx, "missing", UpdateNoteRequest{Body: &body})
	requireCode(t, err, domainerrors.CodeNotFound)

	bad := "nope"
	_, err = env.notes.Update(ctx, note.ID, UpdateNoteRequest{SessionID: &bad})
	requireCode(t, err, domainerrors.CodeInvalidReference)
}

func TestNoteService_DeleteRemovesBlobs(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "with photo #wreck"}, []media.Upload{pngUpload(t, "wreck.png")})
	require.NoError(t, err)
	_, err = env.engagement.Reply(ctx, note.ID, "Nice catch")
	require.NoError(t, err)
	require.NoError(t, env.engagement.Like(ctx, note.ID))
	require.Len(t, storedKeys(t, env), 2)

	require.NoError(t, env.notes.Delete(ctx, note.ID))

	assert.Empty(t, storedKeys(t, env))
	_, err = env.notes.Get(ctx, note.ID)
	requireCode(t, err, domainerrors.CodeNotFound)

	stats, err := env.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Notes)
	assert.Equal(t, 0, stats.Media)

	err = env.notes.Delete(ctx, note.ID)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestNoteService_DeleteQueuesFailedBlobDeletions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "with photo"}, []media.Upload{pngUpload(t, "photo.png")})
	require.NoError(t, err)

	env.backend.setFailDeletes(true)
	require.NoError(t, env.notes.Delete(ctx, note.ID))

	pending, err := env.store.ListPendingBlobDeletions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "note deleted", pending[0].Reason)

	// The sweep drains the ledger once the bucket recovers.
	env.backend.setFailDeletes(false)
	res, err := env.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, 0, res.Pending)
	assert.Empty(t, storedKeys(t, env))
}

func TestNoteService_AttachAndDeleteMedia(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "pit stop"}, nil)
	require.NoError(t, err)

	updated, err := env.notes.AttachMedia(ctx, note.ID, []media.Upload{pngUpload(t, "stop.png")})
	require.NoError(t, err)
	require.Len(t, updated.Media, 1)
	assert.Len(t, storedKeys(t, env), 2)

	require.NoError(t, env.notes.DeleteMedia(ctx, updated.Media[0].ID))
	assert.Empty(t, storedKeys(t, env))

	got, err := env.notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Media)

	_, err = env.notes.AttachMedia(ctx, "missing", []media.Upload{pngUpload(t, "x.png")})
	requireCode(t, err, domainerrors.CodeNotFound)
	_, err = env.notes.AttachMedia(ctx, note.ID, nil)
	requireCode(t, err, domainerrors.CodeValidation)
	err = env.notes.DeleteMedia(ctx, "missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestNoteService_AttachMediaCompensates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "pit stop"}, nil)
	require.NoError(t, err)

	env.notes.store = failingStore{Store: env.store}
	_, err = env.notes.AttachMedia(ctx, note.ID, []media.Upload{pngUpload(t, "stop.png")})
	requireCode(t, err, domainerrors.CodePersistence)
	assert.Empty(t, storedKeys(t, env))
}
