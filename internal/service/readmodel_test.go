package service

import (
	"context"
	"testing"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadModelService_StateTracksWrites(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.notes.Create(ctx, CreateNoteRequest{Body: "Green flag pit stop"}, nil)
	require.NoError(t, err)

	state, err := env.readModel.State(ctx)
	require.NoError(t, err)
	assert.False(t, state.Stale)
	assert.Equal(t, 1, state.Rows)
	require.NotNil(t, state.RefreshedAt)

	now := time.Now().UTC()
	require.NoError(t, env.store.CreateNote(ctx, &domain.Note{
		ID: id.New(), Body: "Out-of-band write", Category: domain.CategoryGeneral, CreatedAt: now, UpdatedAt: now,
	}, nil, nil))

	state, err = env.readModel.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.Stale)

	rows, err := env.readModel.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	state, err = env.readModel.State(ctx)
	require.NoError(t, err)
	assert.False(t, state.Stale)
	assert.Equal(t, 2, state.Rows)
}
