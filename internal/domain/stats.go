package domain

import "time"

// Stats summarizes the notebook.
type Stats struct {
	Notes     int     `json:"notes"`
	Media     int     `json:"media"`
	Tags      int     `json:"tags"`
	Drivers   int     `json:"drivers"`
	Sessions  int     `json:"sessions"`
	StorageMB float64 `json:"storage_mb"`
}

// ReadModelState reports how fresh the denormalized note view is.
type ReadModelState struct {
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
	Rows        int        `json:"rows"`
	Stale       bool       `json:"stale"` // A write happened after the last refresh
}
