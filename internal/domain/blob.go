package domain

import "time"

// PendingBlobDeletion records a blob whose database row is gone but whose
// object may still exist in storage. The reconciliation sweep drains these.
type PendingBlobDeletion struct {
	ObjectKey string    `json:"object_key"`
	FileURL   string    `json:"file_url,omitempty"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
