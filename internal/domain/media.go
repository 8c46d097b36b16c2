package domain

import (
	"strings"
	"time"
)

// Media is an image or video attached to exactly one note.
// The blob lives in object storage; FileURL is its public address.
type Media struct {
	ID              string    `json:"id"`
	NoteID          string    `json:"note_id"`
	FileURL         string    `json:"file_url"`
	ObjectKey       string    `json:"object_key"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	ThumbnailKey    string    `json:"-"`
	Type            MediaType `json:"type"`
	ContentType     string    `json:"content_type"`
	SizeMB          float64   `json:"size_mb"`
	Filename        string    `json:"filename"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Blurhash        string    `json:"blurhash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ObjectKeys returns every blob key owned by this media row.
func (m *Media) ObjectKeys() []string {
	keys := []string{m.ObjectKey}
	if m.ThumbnailKey != "" {
		keys = append(keys, m.ThumbnailKey)
	}
	return keys
}

// MediaSearchResult is a row of the media_search view.
type MediaSearchResult struct {
	Media
	NoteBody    string       `json:"note_body"`
	Category    NoteCategory `json:"category"`
	DriverID    string       `json:"driver_id,omitempty"`
	DriverName  string       `json:"driver_name,omitempty"`
	TrackID     string       `json:"track_id,omitempty"`
	TrackName   string       `json:"track_name,omitempty"`
	SeriesID    string       `json:"series_id,omitempty"`
	SeriesName  string       `json:"series_name,omitempty"`
	SessionDate *time.Time   `json:"session_date,omitempty"`
}

// MediaFilter narrows media search.
type MediaFilter struct {
	Query    string // Fuzzy text over filename and note body
	Type     MediaType
	DriverID string
	TrackID  string
	SeriesID string
	Limit    int
	Offset   int
}

// Normalize applies paging defaults and bounds.
func (f *MediaFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Query = strings.TrimSpace(f.Query)
}

// BytesToMB converts a byte count to megabytes rounded to two decimals.
func BytesToMB(n int64) float64 {
	mb := float64(n) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
