package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/id"
	"github.com/racingnotes/racingnotes-server/internal/sse"
	"github.com/racingnotes/racingnotes-server/internal/store"
	"github.com/racingnotes/racingnotes-server/internal/validation"
)

// CreateTrackRequest is the input for adding a track.
type CreateTrackRequest struct {
	Name string `json:"name" validate:"notblank,max=200"`
	Type string `json:"type" validate:"required,track_type"`
}

// CreateSeriesRequest is the input for adding a series.
type CreateSeriesRequest struct {
	Name string `json:"name" validate:"notblank,max=200"`
}

// CreateDriverRequest is the input for adding a driver.
type CreateDriverRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	SeriesID string `json:"series_id" validate:"required"`
}

// CreateSessionRequest is the input for adding a session.
type CreateSessionRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Type     string `json:"type" validate:"required,session_type"`
	TrackID  string `json:"track_id" validate:"required"`
	SeriesID string `json:"series_id" validate:"required"`
}

// ReferenceService manages tracks, series, drivers and sessions.
// Listings change rarely and are cached for the reference TTL.
type ReferenceService struct {
	store     store.Store
	cache     *cache.Cache
	ttl       time.Duration
	validator *validation.Validator
	logger    *slog.Logger
	notifier
}

// NewReferenceService creates a new reference data service.
func NewReferenceService(store store.Store, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *ReferenceService {
	return &ReferenceService{
		store:     store,
		cache:     c,
		ttl:       ttl,
		validator: validation.New(),
		logger:    logger,
	}
}

// ListTracks returns every track ordered by name.
func (s *ReferenceService) ListTracks(ctx context.Context) ([]*domain.Track, error) {
	return cache.Fetch(ctx, s.cache, cache.NamespaceReference, "tracks", s.ttl, func(ctx context.Context) ([]*domain.Track, error) {
		tracks, err := s.store.ListTracks(ctx)
		return tracks, translateError(s.logger, err)
	})
}

// ListSeries returns every series ordered by name.
func (s *ReferenceService) ListSeries(ctx context.Context) ([]*domain.Series, error) {
	return cache.Fetch(ctx, s.cache, cache.NamespaceReference, "series", s.ttl, func(ctx context.Context) ([]*domain.Series, error) {
		series, err := s.store.ListSeries(ctx)
		return series, translateError(s.logger, err)
	})
}

// ListDrivers returns drivers, optionally restricted to one series.
func (s *ReferenceService) ListDrivers(ctx context.Context, seriesID string) ([]*domain.Driver, error) {
	key := cache.Signature(map[string]string{"kind": "drivers", "series": seriesID})
	return cache.Fetch(ctx, s.cache, cache.NamespaceReference, key, s.ttl, func(ctx context.Context) ([]*domain.Driver, error) {
		drivers, err := s.store.ListDrivers(ctx, seriesID)
		return drivers, translateError(s.logger, err)
	})
}

// ListSessions returns sessions matching filter, newest first.
func (s *ReferenceService) ListSessions(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domainerrors.Validationf("unknown session type %q", filter.Type)
	}
	key := cache.Signature(map[string]string{
		"kind":   "sessions",
		"track":  filter.TrackID,
		"series": filter.SeriesID,
		"type":   string(filter.Type),
	})
	return cache.Fetch(ctx, s.cache, cache.NamespaceReference, key, s.ttl, func(ctx context.Context) ([]*domain.Session, error) {
		sessions, err := s.store.ListSessions(ctx, filter)
		return sessions, translateError(s.logger, err)
	})
}

// GetSession returns one session.
func (s *ReferenceService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, notFound(s.logger, err, "session", sessionID)
	}
	return session, nil
}

// CreateTrack adds a track.
func (s *ReferenceService) CreateTrack(ctx context.Context, req CreateTrackRequest) (*domain.Track, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	t := &domain.Track{
		ID:        id.New(),
		Name:      strings.TrimSpace(req.Name),
		Type:      domain.TrackType(req.Type),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTrack(ctx, t); err != nil {
		return nil, duplicate(s.logger, err, "track", t.Name)
	}
	s.created("track", t.ID, t.Name)
	return t, nil
}

// CreateSeries adds a series.
func (s *ReferenceService) CreateSeries(ctx context.Context, req CreateSeriesRequest) (*domain.Series, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	sr := &domain.Series{
		ID:        id.New(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSeries(ctx, sr); err != nil {
		return nil, duplicate(s.logger, err, "series", sr.Name)
	}
	s.created("series", sr.ID, sr.Name)
	return sr, nil
}

// CreateDriver adds a driver to a series.
func (s *ReferenceService) CreateDriver(ctx context.Context, req CreateDriverRequest) (*domain.Driver, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	d := &domain.Driver{
		ID:        id.New(),
		Name:      strings.TrimSpace(req.Name),
		SeriesID:  req.SeriesID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateDriver(ctx, d); err != nil {
		return nil, duplicate(s.logger, err, "driver", d.Name)
	}
	s.created("driver", d.ID, d.Name)
	return d, nil
}

// CreateSession adds a session.
func (s *ReferenceService) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	date, err := time.Parse(domain.SessionDateLayout, req.Date)
	if err != nil {
		return nil, domainerrors.Validationf("invalid session date %q", req.Date)
	}
	sess := &domain.Session{
		ID:        id.New(),
		Date:      date,
		Type:      domain.SessionType(req.Type),
		TrackID:   req.TrackID,
		SeriesID:  req.SeriesID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, duplicate(s.logger, err, "session", sess.Date.Format(domain.SessionDateLayout))
	}
	s.created("session", sess.ID, sess.Label())

	// Re-read to pick up track and series names.
	return s.GetSession(ctx, sess.ID)
}

func (s *ReferenceService) created(kind, entityID, name string) {
	s.cache.Invalidate(cache.NamespaceReference, cache.NamespaceStats)
	s.logger.Info(kind+" created", "id", entityID, "name", name)
	s.emit(sse.NewReferenceEvent(kind, entityID, name))
}

// duplicate maps unique-constraint violations to ALREADY_EXISTS naming the entity.
func duplicate(logger *slog.Logger, err error, entity, name string) error {
	if domainerrors.Is(err, store.ErrAlreadyExists) {
		return domainerrors.AlreadyExistsf("%s %q already exists", entity, name).WithCause(err)
	}
	return translateError(logger, err)
}
