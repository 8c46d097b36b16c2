// Package sse implements Server-Sent Events so open clients can refresh their
// feed when notes change.
package sse

import "time"

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventNoteCreated is sent after a note and its media are saved.
	EventNoteCreated EventType = "note.created"
	// EventNoteUpdated is sent after a note's text, links, tags or media change.
	EventNoteUpdated EventType = "note.updated"
	// EventNoteDeleted is sent after a note is removed.
	EventNoteDeleted EventType = "note.deleted"
	// EventEngagementChanged is sent when likes or replies on a note change.
	EventEngagementChanged EventType = "note.engagement"

	// EventReferenceCreated is sent when a track, series, driver or session is added.
	EventReferenceCreated EventType = "reference.created"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Type      EventType `json:"type"`
}

// NoteEventData identifies the note an event is about.
type NoteEventData struct {
	NoteID string `json:"note_id"`
}

// ReferenceEventData describes a new reference row.
type ReferenceEventData struct {
	Kind string `json:"kind"` // track, series, driver or session
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewNoteEvent creates a note lifecycle event.
func NewNoteEvent(t EventType, noteID string) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      NoteEventData{NoteID: noteID},
	}
}

// NewReferenceEvent creates a reference.created event.
func NewReferenceEvent(kind, id, name string) Event {
	return Event{
		Type:      EventReferenceCreated,
		Timestamp: time.Now().UTC(),
		Data:      ReferenceEventData{Kind: kind, ID: id, Name: name},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now().UTC(),
	}
}
