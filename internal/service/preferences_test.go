package service

import (
	"context"
	"testing"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesService_Defaults(t *testing.T) {
	env := setupTestEnv(t)

	prefs, err := env.prefs.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), prefs)
}

func TestPreferencesService_PartialUpdate(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	theme := "dark"
	pageSize := 50
	_, err := env.prefs.Update(ctx, UpdatePreferencesRequest{Theme: &theme, PageSize: &pageSize})
	require.NoError(t, err)

	category := string(domain.CategoryStrategy)
	_, err = env.prefs.Update(ctx, UpdatePreferencesRequest{
		DefaultCategory:  &category,
		FavoriteDriverID: &f.larson.ID,
	})
	require.NoError(t, err)

	prefs, err := env.prefs.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, 50, prefs.PageSize)
	assert.Equal(t, domain.CategoryStrategy, prefs.DefaultCategory)
	assert.Equal(t, f.larson.ID, prefs.FavoriteDriverID)
	assert.Empty(t, prefs.FavoriteTrackID)
}

func TestPreferencesService_Validation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	theme := "neon"
	_, err := env.prefs.Update(ctx, UpdatePreferencesRequest{Theme: &theme})
	requireCode(t, err, domainerrors.CodeValidation)

	pageSize := 0
	_, err = env.prefs.Update(ctx, UpdatePreferencesRequest{PageSize: &pageSize})
	requireCode(t, err, domainerrors.CodeValidation)

	category := "gossip"
	_, err = env.prefs.Update(ctx, UpdatePreferencesRequest{DefaultCategory: &category})
	requireCode(t, err, domainerrors.CodeValidation)

	driver := "no-such-driver"
	_, err = env.prefs.Update(ctx, UpdatePreferencesRequest{FavoriteDriverID: &driver})
	requireCode(t, err, domainerrors.CodeInvalidReference)
}
