// Package main loads NASCAR reference data into the racing notes database.
//
// Tracks, series and drivers that already exist are left alone, so the tool
// can be re-run after adding entries below.
//
// Usage:
//
//	go run ./cmd/seed --data-dir ~/.racingnotes
//	go run ./cmd/seed --sessions=false   # reference data only
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/service"
	"github.com/racingnotes/racingnotes-server/internal/store/sqlite"
)

type trackSeed struct {
	name string
	kind domain.TrackType
}

var tracks = []trackSeed{
	{"Daytona International Speedway", domain.TrackSuperspeedway},
	{"Talladega Superspeedway", domain.TrackSuperspeedway},
	{"Atlanta Motor Speedway", domain.TrackSuperspeedway},
	{"Charlotte Motor Speedway", domain.TrackIntermediate},
	{"Las Vegas Motor Speedway", domain.TrackIntermediate},
	{"Kansas Speedway", domain.TrackIntermediate},
	{"Texas Motor Speedway", domain.TrackIntermediate},
	{"Homestead-Miami Speedway", domain.TrackIntermediate},
	{"Bristol Motor Speedway", domain.TrackShort},
	{"Martinsville Speedway", domain.TrackShort},
	{"Richmond Raceway", domain.TrackShort},
	{"Phoenix Raceway", domain.TrackShort},
	{"Watkins Glen International", domain.TrackRoadCourse},
	{"Sonoma Raceway", domain.TrackRoadCourse},
	{"Circuit of The Americas", domain.TrackRoadCourse},
}

var drivers = map[string][]string{
	"NASCAR Cup Series": {
		"Kyle Larson", "Denny Hamlin", "William Byron", "Chase Elliott",
		"Christopher Bell", "Ryan Blaney", "Joey Logano", "Tyler Reddick",
		"Martin Truex Jr.", "Ross Chastain",
	},
	"NASCAR Xfinity Series": {
		"Justin Allgaier", "Cole Custer", "Austin Hill", "Sam Mayer",
	},
	"NASCAR Craftsman Truck Series": {
		"Corey Heim", "Christian Eckes", "Ty Majeski", "Grant Enfinger",
	},
}

// seriesOrder keeps creation order stable; map iteration is random.
var seriesOrder = []string{"NASCAR Cup Series", "NASCAR Xfinity Series", "NASCAR Craftsman Truck Series"}

func main() {
	fs := pflag.NewFlagSet("seed", pflag.ExitOnError)
	config.RegisterFlags(fs)
	withSessions := fs.Bool("sessions", true, "Also create a sample Daytona weekend for each series")
	_ = fs.Parse(os.Args[1:])

	if err := run(fs, *withSessions); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(fs *pflag.FlagSet, withSessions bool) error {
	loader, err := config.NewLoader(fs)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	st, err := sqlite.Open(cfg.Database.Path, log.WithComponent("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	ref := service.NewReferenceService(st, cache.New(0), time.Minute, log.Logger)

	s := &seeder{ref: ref, log: log.Logger}
	if err := s.load(ctx); err != nil {
		return err
	}

	trackIDs, err := s.tracks(ctx)
	if err != nil {
		return err
	}
	seriesIDs, err := s.series(ctx)
	if err != nil {
		return err
	}
	if err := s.drivers(ctx, seriesIDs); err != nil {
		return err
	}
	if withSessions {
		if err := s.sessions(ctx, trackIDs["Daytona International Speedway"], seriesIDs); err != nil {
			return err
		}
	}

	log.Info("Seed complete", "database", cfg.Database.Path, "created", s.created)
	return nil
}

// seeder creates missing reference rows through the reference service so the
// same validation applies as for API requests.
type seeder struct {
	ref     *service.ReferenceService
	log     *slog.Logger
	created int

	existingTracks  map[string]string
	existingSeries  map[string]string
	existingDrivers map[string]bool // seriesID + "/" + name
}

func (s *seeder) load(ctx context.Context) error {
	s.existingTracks = map[string]string{}
	s.existingSeries = map[string]string{}
	s.existingDrivers = map[string]bool{}

	ts, err := s.ref.ListTracks(ctx)
	if err != nil {
		return err
	}
	for _, t := range ts {
		s.existingTracks[t.Name] = t.ID
	}

	ss, err := s.ref.ListSeries(ctx)
	if err != nil {
		return err
	}
	for _, sr := range ss {
		s.existingSeries[sr.Name] = sr.ID
	}

	ds, err := s.ref.ListDrivers(ctx, "")
	if err != nil {
		return err
	}
	for _, d := range ds {
		s.existingDrivers[d.SeriesID+"/"+d.Name] = true
	}
	return nil
}

func (s *seeder) tracks(ctx context.Context) (map[string]string, error) {
	ids := s.existingTracks
	for _, t := range tracks {
		if _, ok := ids[t.name]; ok {
			continue
		}
		track, err := s.ref.CreateTrack(ctx, service.CreateTrackRequest{Name: t.name, Type: string(t.kind)})
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", t.name, err)
		}
		ids[t.name] = track.ID
		s.created++
	}
	return ids, nil
}

func (s *seeder) series(ctx context.Context) (map[string]string, error) {
	ids := s.existingSeries
	for _, name := range seriesOrder {
		if _, ok := ids[name]; ok {
			continue
		}
		series, err := s.ref.CreateSeries(ctx, service.CreateSeriesRequest{Name: name})
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", name, err)
		}
		ids[name] = series.ID
		s.created++
	}
	return ids, nil
}

func (s *seeder) drivers(ctx context.Context, seriesIDs map[string]string) error {
	for _, seriesName := range seriesOrder {
		seriesID := seriesIDs[seriesName]
		for _, name := range drivers[seriesName] {
			if s.existingDrivers[seriesID+"/"+name] {
				continue
			}
			if _, err := s.ref.CreateDriver(ctx, service.CreateDriverRequest{Name: name, SeriesID: seriesID}); err != nil {
				return fmt.Errorf("driver %s: %w", name, err)
			}
			s.created++
		}
	}
	return nil
}

// sessions adds practice, qualifying and race for each series at trackID,
// unless that track already has sessions.
func (s *seeder) sessions(ctx context.Context, trackID string, seriesIDs map[string]string) error {
	existing, err := s.ref.ListSessions(ctx, domain.SessionFilter{TrackID: trackID})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.log.Info("Sessions already present, skipping", "track_id", trackID, "sessions", len(existing))
		return nil
	}

	weekend := []struct {
		date string
		kind domain.SessionType
	}{
		{"2025-02-12", domain.SessionPractice},
		{"2025-02-12", domain.SessionQualifying},
		{"2025-02-16", domain.SessionRace},
	}
	for _, seriesName := range seriesOrder {
		for _, w := range weekend {
			_, err := s.ref.CreateSession(ctx, service.CreateSessionRequest{
				Date:     w.date,
				Type:     string(w.kind),
				TrackID:  trackID,
				SeriesID: seriesIDs[seriesName],
			})
			if err != nil {
				return fmt.Errorf("session %s %s: %w", seriesName, w.kind, err)
			}
			s.created++
		}
	}
	return nil
}
