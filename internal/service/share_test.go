package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/auth"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShareService(t *testing.T, env *testEnv) *ShareService {
	t.Helper()
	tokens, err := auth.NewShareTokens(strings.Repeat("ab", 32), time.Hour)
	require.NoError(t, err)
	return NewShareService(tokens, env.notes, testLogger())
}

func TestShareService_IssueAndResolve(t *testing.T) {
	env := setupTestEnv(t)
	shares := newShareService(t, env)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Bump drafting works in the tri-oval", Shared: true}, nil)
	require.NoError(t, err)

	link, err := shares.Issue(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, link.NoteID)
	assert.NotEmpty(t, link.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), link.ExpiresAt, time.Minute)
	assert.NotContains(t, link.Token, note.ID)

	got, err := shares.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, note.ID, got.ID)
	assert.Equal(t, note.Body, got.Body)
}

func TestShareService_IssueRequiresSharedNote(t *testing.T) {
	env := setupTestEnv(t)
	shares := newShareService(t, env)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Private setup sheet"}, nil)
	require.NoError(t, err)

	_, err = shares.Issue(ctx, note.ID)
	requireCode(t, err, domainerrors.CodeConflict)

	_, err = shares.Issue(ctx, "missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestShareService_UnshareRevokesLinks(t *testing.T) {
	env := setupTestEnv(t)
	shares := newShareService(t, env)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Restart lane choice", Shared: true}, nil)
	require.NoError(t, err)
	link, err := shares.Issue(ctx, note.ID)
	require.NoError(t, err)

	off := false
	_, err = env.notes.Update(ctx, note.ID, UpdateNoteRequest{Shared: &off})
	require.NoError(t, err)

	_, err = shares.Resolve(ctx, link.Token)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestShareService_ResolveDeletedNote(t *testing.T) {
	env := setupTestEnv(t)
	shares := newShareService(t, env)
	ctx := context.Background()

	note, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Wreck on the backstretch", Shared: true}, nil)
	require.NoError(t, err)
	link, err := shares.Issue(ctx, note.ID)
	require.NoError(t, err)

	require.NoError(t, env.notes.Delete(ctx, note.ID))

	_, err = shares.Resolve(ctx, link.Token)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestShareService_ResolveRejectsBadTokens(t *testing.T) {
	env := setupTestEnv(t)
	shares := newShareService(t, env)
	ctx := context.Background()

	_, err := shares.Resolve(ctx, "v4.local.garbage")
	requireCode(t, err, domainerrors.CodeUnauthorized)

	// A token sealed with a different key is rejected as well.
	other, err := auth.NewShareTokens(strings.Repeat("cd", 32), time.Hour)
	require.NoError(t, err)
	token, _, err := other.Issue("some-note")
	require.NoError(t, err)

	_, err = shares.Resolve(ctx, token)
	requireCode(t, err, domainerrors.CodeUnauthorized)
}
