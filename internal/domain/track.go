package domain

import "time"

// Track is a racing venue. Tracks are reference data seeded once.
type Track struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      TrackType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
