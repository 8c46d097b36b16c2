package service

import (
	"context"
	"testing"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceService_ListsAreSortedByName(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	tracks, err := env.reference.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, f.daytona.ID, tracks[0].ID)
	assert.Equal(t, f.talladega.ID, tracks[1].ID)

	series, err := env.reference.ListSeries(ctx)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "NASCAR Cup Series", series[0].Name)

	drivers, err := env.reference.ListDrivers(ctx, f.cup.ID)
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	assert.Equal(t, "Chase Elliott", drivers[0].Name)

	drivers, err = env.reference.ListDrivers(ctx, f.xfinity.ID)
	require.NoError(t, err)
	assert.Empty(t, drivers)
}

func TestReferenceService_CreateInvalidatesListings(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	drivers, err := env.reference.ListDrivers(ctx, "")
	require.NoError(t, err)
	require.Len(t, drivers, 2)

	_, err = env.reference.CreateDriver(ctx, CreateDriverRequest{Name: "Denny Hamlin", SeriesID: f.cup.ID})
	require.NoError(t, err)

	drivers, err = env.reference.ListDrivers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, drivers, 3)
}

func TestReferenceService_Duplicates(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	_, err := env.reference.CreateTrack(ctx, CreateTrackRequest{Name: "Daytona International Speedway", Type: "Superspeedway"})
	requireCode(t, err, domainerrors.CodeAlreadyExists)

	_, err = env.reference.CreateSeries(ctx, CreateSeriesRequest{Name: "NASCAR Cup Series"})
	requireCode(t, err, domainerrors.CodeAlreadyExists)

	_, err = env.reference.CreateDriver(ctx, CreateDriverRequest{Name: "Kyle Larson", SeriesID: f.cup.ID})
	requireCode(t, err, domainerrors.CodeAlreadyExists)

	// Driver names are unique per series only.
	d, err := env.reference.CreateDriver(ctx, CreateDriverRequest{Name: "Kyle Larson", SeriesID: f.xfinity.ID})
	require.NoError(t, err)
	assert.Equal(t, f.xfinity.ID, d.SeriesID)
}

func TestReferenceService_MissingReferences(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	_, err := env.reference.CreateDriver(ctx, CreateDriverRequest{Name: "Ghost", SeriesID: "no-such-series"})
	requireCode(t, err, domainerrors.CodeInvalidReference)

	_, err = env.reference.CreateSession(ctx, CreateSessionRequest{
		Date: "2025-03-01", Type: "Practice", TrackID: "no-such-track", SeriesID: f.cup.ID,
	})
	requireCode(t, err, domainerrors.CodeInvalidReference)
}

func TestReferenceService_Validation(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"blank track name", func() error {
			_, err := env.reference.CreateTrack(ctx, CreateTrackRequest{Name: "  ", Type: "Oval"})
			return err
		}},
		{"unknown track type", func() error {
			_, err := env.reference.CreateTrack(ctx, CreateTrackRequest{Name: "Bristol", Type: "Dirt"})
			return err
		}},
		{"driver without series", func() error {
			_, err := env.reference.CreateDriver(ctx, CreateDriverRequest{Name: "Ryan Blaney"})
			return err
		}},
		{"bad session date", func() error {
			_, err := env.reference.CreateSession(ctx, CreateSessionRequest{
				Date: "15/02/2025", Type: "Race", TrackID: f.daytona.ID, SeriesID: f.cup.ID,
			})
			return err
		}},
		{"unknown session type", func() error {
			_, err := env.reference.CreateSession(ctx, CreateSessionRequest{
				Date: "2025-02-16", Type: "Heat", TrackID: f.daytona.ID, SeriesID: f.cup.ID,
			})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, tt.run(), domainerrors.CodeValidation)
		})
	}
}

func TestReferenceService_Sessions(t *testing.T) {
	env := setupTestEnv(t)
	f := seedFixtures(t, env)
	ctx := context.Background()

	assert.Equal(t, "Daytona International Speedway", f.daytonaQ.TrackName)
	assert.Equal(t, "NASCAR Cup Series", f.daytonaQ.SeriesName)

	all, err := env.reference.ListSessions(ctx, domain.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.talladegaR.ID, all[0].ID, "newest first")

	onlyDaytona, err := env.reference.ListSessions(ctx, domain.SessionFilter{TrackID: f.daytona.ID})
	require.NoError(t, err)
	require.Len(t, onlyDaytona, 1)
	assert.Equal(t, f.daytonaQ.ID, onlyDaytona[0].ID)

	races, err := env.reference.ListSessions(ctx, domain.SessionFilter{Type: domain.SessionRace})
	require.NoError(t, err)
	require.Len(t, races, 1)
	assert.Equal(t, f.talladegaR.ID, races[0].ID)

	_, err = env.reference.ListSessions(ctx, domain.SessionFilter{Type: "Heat"})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = env.reference.GetSession(ctx, "missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}
