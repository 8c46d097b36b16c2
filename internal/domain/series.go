package domain

import "time"

// Series is a racing championship such as the Cup Series.
type Series struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
