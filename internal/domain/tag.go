package domain

import "time"

// Tag labels are lowercased and trimmed; this bounds their length.
const MaxTagLength = 50

// Tag is a free-form label shared across notes.
type Tag struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	NoteCount int       `json:"note_count"` // Populated by list queries
	CreatedAt time.Time `json:"created_at"`
}
