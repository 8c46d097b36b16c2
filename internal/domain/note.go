package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Note body limits.
const (
	MaxNoteBodyLength = 5000
	DefaultPageSize   = 20
	MaxPageSize       = 100
)

// Note is a user-authored racing observation, optionally tied to a driver and a session.
type Note struct {
	ID        string       `json:"id"`
	Body      string       `json:"body"`
	DriverID  string       `json:"driver_id,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Category  NoteCategory `json:"category"`
	Shared    bool         `json:"shared"`
	UserID    string       `json:"user_id,omitempty"` // Reserved for multi-user support
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NoteDetails is one row of the denormalized read model: a note joined with its
// driver, session, track and series plus tag labels, media and engagement counts.
type NoteDetails struct {
	Note

	DriverName  string      `json:"driver_name,omitempty"`
	SessionDate *time.Time  `json:"session_date,omitempty"`
	SessionType SessionType `json:"session_type,omitempty"`
	TrackID     string      `json:"track_id,omitempty"`
	TrackName   string      `json:"track_name,omitempty"`
	TrackType   TrackType   `json:"track_type,omitempty"`
	SeriesID    string      `json:"series_id,omitempty"`
	SeriesName  string      `json:"series_name,omitempty"`

	Tags  []string       `json:"tags"`
	Media []MediaSummary `json:"media"`

	LikeCount  int `json:"like_count"`
	ReplyCount int `json:"reply_count"`
	MediaCount int `json:"media_count"`
}

// MediaSummary is the media projection embedded in NoteDetails.
type MediaSummary struct {
	ID           string    `json:"id"`
	FileURL      string    `json:"file_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Type         MediaType `json:"type"`
	Filename     string    `json:"filename"`
	SizeMB       float64   `json:"size_mb"`
	Blurhash     string    `json:"blurhash,omitempty"`
}

// NoteFilter selects notes from the feed. Zero values mean "no constraint".
type NoteFilter struct {
	Query        string         // Full-text query over body and tag labels
	TrackID      string         // Linked session's track
	SeriesID     string         // Attributed series
	DriverID     string         // Linked driver
	Tags         []string       // Any of these labels
	Categories   []NoteCategory // Any of these categories
	SessionTypes []SessionType  // Any of these session types
	SessionFrom  *time.Time     // Linked session date >= SessionFrom
	SessionTo    *time.Time     // Linked session date <= SessionTo
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	SharedOnly   bool
	HasMedia     *bool
	Limit        int
	Offset       int
}

// Normalize applies paging defaults and bounds.
func (f *NoteFilter) Normalize() {
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

// EmptyPage returns a page with no items for the filter's paging window.
func (f NoteFilter) EmptyPage() *NotePage {
	return &NotePage{Items: []*NoteDetails{}, Limit: f.Limit, Offset: f.Offset}
}

// Params flattens the filter into string parameters for cache keys.
// Empty constraints are omitted and multi-valued fields are sorted so that
// equivalent filters produce identical parameter sets.
func (f NoteFilter) Params() map[string]string {
	p := map[string]string{
		"limit":  strconv.Itoa(f.Limit),
		"offset": strconv.Itoa(f.Offset),
	}
	set := func(k, v string) {
		if v != "" {
			p[k] = v
		}
	}
	setTime := func(k string, t *time.Time) {
		if t != nil {
			p[k] = t.UTC().Format(time.RFC3339)
		}
	}
	joinSorted := func(vals []string) string {
		s := slices.Clone(vals)
		slices.Sort(s)
		return strings.Join(slices.Compact(s), ",")
	}

	set("q", strings.ToLower(f.Query))
	set("track", f.TrackID)
	set("series", f.SeriesID)
	set("driver", f.DriverID)
	set("tags", joinSorted(f.Tags))

	cats := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		cats[i] = string(c)
	}
	set("categories", joinSorted(cats))

	types := make([]string, len(f.SessionTypes))
	for i, t := range f.SessionTypes {
		types[i] = string(t)
	}
	set("session_types", joinSorted(types))

	setTime("session_from", f.SessionFrom)
	setTime("session_to", f.SessionTo)
	setTime("created_from", f.CreatedFrom)
	setTime("created_to", f.CreatedTo)
	if f.SharedOnly {
		p["shared"] = "true"
	}
	if f.HasMedia != nil {
		p["has_media"] = strconv.FormatBool(*f.HasMedia)
	}
	return p
}

// NotePage is one page of feed results.
type NotePage struct {
	Items   []*NoteDetails `json:"items"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasNext bool           `json:"has_next"`
}
