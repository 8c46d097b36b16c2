package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

func (s *Server) registerReferenceRoutes() {
	register(s.api, huma.Operation{
		OperationID: "listTracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/tracks",
		Summary:     "List tracks",
		Description: "Returns all tracks sorted by name",
		Tags:        []string{"Reference"},
	}, s.handleListTracks)

	register(s.api, huma.Operation{
		OperationID:   "createTrack",
		Method:        http.MethodPost,
		Path:          "/api/v1/tracks",
		Summary:       "Create track",
		Description:   "Adds a track. Names are unique.",
		Tags:          []string{"Reference"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTrack)

	register(s.api, huma.Operation{
		OperationID: "listSeries",
		Method:      http.MethodGet,
		Path:        "/api/v1/series",
		Summary:     "List series",
		Description: "Returns all racing series sorted by name",
		Tags:        []string{"Reference"},
	}, s.handleListSeries)

	register(s.api, huma.Operation{
		OperationID:   "createSeries",
		Method:        http.MethodPost,
		Path:          "/api/v1/series",
		Summary:       "Create series",
		Description:   "Adds a racing series. Names are unique.",
		Tags:          []string{"Reference"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSeries)

	register(s.api, huma.Operation{
		OperationID: "listDrivers",
		Method:      http.MethodGet,
		Path:        "/api/v1/drivers",
		Summary:     "List drivers",
		Description: "Returns drivers sorted by name, optionally limited to one series",
		Tags:        []string{"Reference"},
	}, s.handleListDrivers)

	register(s.api, huma.Operation{
		OperationID:   "createDriver",
		Method:        http.MethodPost,
		Path:          "/api/v1/drivers",
		Summary:       "Create driver",
		Description:   "Adds a driver to a series. Names are unique within a series.",
		Tags:          []string{"Reference"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateDriver)

	register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions",
		Summary:     "List sessions",
		Description: "Returns race weekend sessions, newest first",
		Tags:        []string{"Reference"},
	}, s.handleListSessions)

	register(s.api, huma.Operation{
		OperationID:   "createSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Create session",
		Description:   "Adds a practice, qualifying or race session",
		Tags:          []string{"Reference"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSession)

	register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns a session with its track and series names",
		Tags:        []string{"Reference"},
	}, s.handleGetSession)
}

// === DTOs ===

// TracksOutput wraps a track list for Huma.
type TracksOutput struct {
	Body struct {
		Tracks []*domain.Track `json:"tracks" doc:"Tracks sorted by name"`
	}
}

// CreateTrackInput wraps the create track request for Huma.
type CreateTrackInput struct {
	Body service.CreateTrackRequest
}

// TrackOutput wraps a single track for Huma.
type TrackOutput struct {
	Body *domain.Track
}

// SeriesListOutput wraps a series list for Huma.
type SeriesListOutput struct {
	Body struct {
		Series []*domain.Series `json:"series" doc:"Series sorted by name"`
	}
}

// CreateSeriesInput wraps the create series request for Huma.
type CreateSeriesInput struct {
	Body service.CreateSeriesRequest
}

// SeriesOutput wraps a single series for Huma.
type SeriesOutput struct {
	Body *domain.Series
}

// ListDriversInput contains parameters for listing drivers.
type ListDriversInput struct {
	SeriesID string `query:"series_id" doc:"Only drivers of this series"`
}

// DriversOutput wraps a driver list for Huma.
type DriversOutput struct {
	Body struct {
		Drivers []*domain.Driver `json:"drivers" doc:"Drivers sorted by name"`
	}
}

// CreateDriverInput wraps the create driver request for Huma.
type CreateDriverInput struct {
	Body service.CreateDriverRequest
}

// DriverOutput wraps a single driver for Huma.
type DriverOutput struct {
	Body *domain.Driver
}

// ListSessionsInput contains parameters for listing sessions.
type ListSessionsInput struct {
	TrackID  string `query:"track_id" doc:"Only sessions at this track"`
	SeriesID string `query:"series_id" doc:"Only sessions of this series"`
	Type     string `query:"type" doc:"Practice, Qualifying or Race"`
}

// SessionsOutput wraps a session list for Huma.
type SessionsOutput struct {
	Body struct {
		Sessions []*domain.Session `json:"sessions" doc:"Sessions, newest first"`
	}
}

// CreateSessionInput wraps the create session request for Huma.
type CreateSessionInput struct {
	Body service.CreateSessionRequest
}

// GetSessionInput contains parameters for getting a session.
type GetSessionInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// SessionOutput wraps a single session for Huma.
type SessionOutput struct {
	Body *domain.Session
}

// === Handlers ===

func (s *Server) handleListTracks(ctx context.Context, _ *struct{}) (*TracksOutput, error) {
	tracks, err := s.services.Reference.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	out := &TracksOutput{}
	out.Body.Tracks = tracks
	return out, nil
}

func (s *Server) handleCreateTrack(ctx context.Context, input *CreateTrackInput) (*TrackOutput, error) {
	track, err := s.services.Reference.CreateTrack(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &TrackOutput{Body: track}, nil
}

func (s *Server) handleListSeries(ctx context.Context, _ *struct{}) (*SeriesListOutput, error) {
	series, err := s.services.Reference.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	out := &SeriesListOutput{}
	out.Body.Series = series
	return out, nil
}

func (s *Server) handleCreateSeries(ctx context.Context, input *CreateSeriesInput) (*SeriesOutput, error) {
	series, err := s.services.Reference.CreateSeries(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &SeriesOutput{Body: series}, nil
}

func (s *Server) handleListDrivers(ctx context.Context, input *ListDriversInput) (*DriversOutput, error) {
	drivers, err := s.services.Reference.ListDrivers(ctx, input.SeriesID)
	if err != nil {
		return nil, err
	}
	out := &DriversOutput{}
	out.Body.Drivers = drivers
	return out, nil
}

func (s *Server) handleCreateDriver(ctx context.Context, input *CreateDriverInput) (*DriverOutput, error) {
	driver, err := s.services.Reference.CreateDriver(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &DriverOutput{Body: driver}, nil
}

func (s *Server) handleListSessions(ctx context.Context, input *ListSessionsInput) (*SessionsOutput, error) {
	sessions, err := s.services.Reference.ListSessions(ctx, domain.SessionFilter{
		TrackID:  input.TrackID,
		SeriesID: input.SeriesID,
		Type:     domain.SessionType(input.Type),
	})
	if err != nil {
		return nil, err
	}
	out := &SessionsOutput{}
	out.Body.Sessions = sessions
	return out, nil
}

func (s *Server) handleCreateSession(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	session, err := s.services.Reference.CreateSession(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: session}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *GetSessionInput) (*SessionOutput, error) {
	session, err := s.services.Reference.GetSession(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: session}, nil
}
