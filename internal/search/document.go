// Package search keeps a Bleve index of notes and media for fuzzy lookups:
// typo-tolerant matches on driver, track and tag names and prefix matches while
// typing. The SQLite FTS table remains the source for exact feed filtering.
package search

import (
	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/util"
)

// DocType discriminates documents in the shared index.
type DocType string

// Document types.
const (
	DocTypeNote  DocType = "note"
	DocTypeMedia DocType = "media"
)

// Document is the indexed form of a note or a media item. Related names are
// denormalized so a single query covers driver, track and series.
type Document struct {
	ID   string
	Type DocType

	Body       string   // Note body as plain text
	Tags       []string // Note tag labels
	Filename   string   // Media only
	DriverName string
	TrackName  string
	SeriesName string

	// Exact-match filter fields
	Category  string
	MediaType string
	NoteID    string
	DriverID  string
	TrackID   string
	SeriesID  string

	CreatedAt int64 // Unix millis
}

// ToMap converts the document to the lowercase field names used by the mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"type":       string(d.Type),
		"created_at": d.CreatedAt,
	}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("body", d.Body)
	set("filename", d.Filename)
	set("driver_name", d.DriverName)
	set("track_name", d.TrackName)
	set("series_name", d.SeriesName)
	set("category", d.Category)
	set("media_type", d.MediaType)
	set("note_id", d.NoteID)
	set("driver_id", d.DriverID)
	set("track_id", d.TrackID)
	set("series_id", d.SeriesID)
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}

// NoteDocument converts a read model row to a Document.
func NoteDocument(n *domain.NoteDetails) *Document {
	return &Document{
		ID:         n.ID,
		Type:       DocTypeNote,
		Body:       util.PlainText(n.Body),
		Tags:       n.Tags,
		DriverName: n.DriverName,
		TrackName:  n.TrackName,
		SeriesName: n.SeriesName,
		Category:   string(n.Category),
		DriverID:   n.DriverID,
		TrackID:    n.TrackID,
		SeriesID:   n.SeriesID,
		CreatedAt:  n.CreatedAt.UnixMilli(),
	}
}

// MediaDocument converts a media_search row to a Document.
func MediaDocument(m *domain.MediaSearchResult) *Document {
	return &Document{
		ID:         m.ID,
		Type:       DocTypeMedia,
		Body:       util.PlainText(m.NoteBody),
		Filename:   m.Filename,
		DriverName: m.DriverName,
		TrackName:  m.TrackName,
		SeriesName: m.SeriesName,
		Category:   string(m.Category),
		MediaType:  string(m.Type),
		NoteID:     m.NoteID,
		DriverID:   m.DriverID,
		TrackID:    m.TrackID,
		SeriesID:   m.SeriesID,
		CreatedAt:  m.CreatedAt.UnixMilli(),
	}
}
