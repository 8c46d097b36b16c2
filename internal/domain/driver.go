package domain

import "time"

// Driver competes in exactly one series. Names are unique within a series.
type Driver struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SeriesID   string    `json:"series_id"`
	SeriesName string    `json:"series_name,omitempty"` // Populated by list queries
	CreatedAt  time.Time `json:"created_at"`
}
