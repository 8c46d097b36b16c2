package domain

import "fmt"

// TrackType classifies a venue.
type TrackType string

// Track types as stored in the database.
const (
	TrackSuperspeedway TrackType = "Superspeedway"
	TrackIntermediate  TrackType = "Intermediate"
	TrackShort         TrackType = "Short Track"
	TrackRoadCourse    TrackType = "Road Course"
)

// TrackTypes lists every valid track type.
var TrackTypes = []TrackType{TrackSuperspeedway, TrackIntermediate, TrackShort, TrackRoadCourse}

// Valid reports whether t is a known track type.
func (t TrackType) Valid() bool {
	for _, v := range TrackTypes {
		if v == t {
			return true
		}
	}
	return false
}

// SessionType is the kind of on-track event.
type SessionType string

// Session types as stored in the database.
const (
	SessionPractice   SessionType = "Practice"
	SessionQualifying SessionType = "Qualifying"
	SessionRace       SessionType = "Race"
)

// SessionTypes lists every valid session type.
var SessionTypes = []SessionType{SessionPractice, SessionQualifying, SessionRace}

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	for _, v := range SessionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NoteCategory groups notes for filtering.
type NoteCategory string

// Note categories as stored in the database.
const (
	CategoryGeneral       NoteCategory = "General"
	CategoryTrackSpecific NoteCategory = "Track Specific"
	CategoryStrategy      NoteCategory = "Strategy"
	CategoryOther         NoteCategory = "Other"
)

// NoteCategories lists every valid category.
var NoteCategories = []NoteCategory{CategoryGeneral, CategoryTrackSpecific, CategoryStrategy, CategoryOther}

// Valid reports whether c is a known category.
func (c NoteCategory) Valid() bool {
	for _, v := range NoteCategories {
		if v == c {
			return true
		}
	}
	return false
}

// MediaType distinguishes stills from clips.
type MediaType string

// Media types as stored in the database.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo
}

// ParseNoteCategory returns the category for s, defaulting to General when s is empty.
func ParseNoteCategory(s string) (NoteCategory, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	c := NoteCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown note category %q", s)
	}
	return c, nil
}
