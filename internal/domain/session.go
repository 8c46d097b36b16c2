package domain

import "time"

// SessionDateLayout is the wire and storage format for session dates.
const SessionDateLayout = "2006-01-02"

// Session is a practice, qualifying or race event at a track for one series.
type Session struct {
	ID         string      `json:"id"`
	Date       time.Time   `json:"date"`
	Type       SessionType `json:"type"`
	TrackID    string      `json:"track_id"`
	SeriesID   string      `json:"series_id"`
	TrackName  string      `json:"track_name,omitempty"`
	SeriesName string      `json:"series_name,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Label renders a short human description, e.g. "Daytona International Speedway Qualifying 2025-02-15".
func (s *Session) Label() string {
	name := s.TrackName
	if name == "" {
		name = s.TrackID
	}
	return name + " " + string(s.Type) + " " + s.Date.Format(SessionDateLayout)
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	TrackID  string
	SeriesID string
	Type     SessionType
}
