// Package store defines the persistence interface for the racing notes server.
package store

import (
	"context"

	"github.com/racingnotes/racingnotes-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Reference data
	CreateTrack(ctx context.Context, t *domain.Track) error
	GetTrack(ctx context.Context, id string) (*domain.Track, error)
	ListTracks(ctx context.Context) ([]*domain.Track, error)
	CreateSeries(ctx context.Context, s *domain.Series) error
	GetSeries(ctx context.Context, id string) (*domain.Series, error)
	ListSeries(ctx context.Context) ([]*domain.Series, error)
	CreateDriver(ctx context.Context, d *domain.Driver) error
	GetDriver(ctx context.Context, id string) (*domain.Driver, error)
	ListDrivers(ctx context.Context, seriesID string) ([]*domain.Driver, error)
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, error)

	// Notes
	CreateNote(ctx context.Context, n *domain.Note, tags []string, media []*domain.Media) error
	GetNote(ctx context.Context, id string) (*domain.Note, error)
	UpdateNote(ctx context.Context, n *domain.Note, tags []string) error
	DeleteNote(ctx context.Context, id string) ([]*domain.Media, error)
	GetNoteTags(ctx context.Context, noteID string) ([]string, error)

	// Media
	AddMedia(ctx context.Context, noteID string, media []*domain.Media) error
	GetMedia(ctx context.Context, id string) (*domain.Media, error)
	ListNoteMedia(ctx context.Context, noteID string) ([]*domain.Media, error)
	DeleteMedia(ctx context.Context, id string) (*domain.Media, error)
	SearchMedia(ctx context.Context, filter domain.MediaFilter) ([]*domain.MediaSearchResult, int, error)
	ListMediaResults(ctx context.Context, ids []string) ([]*domain.MediaSearchResult, error)
	ListAllMediaResults(ctx context.Context) ([]*domain.MediaSearchResult, error)
	ReferencedObjectKeys(ctx context.Context) (map[string]struct{}, error)

	// Tags
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	PopularTags(ctx context.Context, limit int) ([]*domain.Tag, error)
	SearchTags(ctx context.Context, query string, limit int) ([]*domain.Tag, error)

	// Engagement
	AddLike(ctx context.Context, like *domain.Like) error
	RemoveLike(ctx context.Context, noteID, userID string) error
	CreateReply(ctx context.Context, r *domain.Reply) error
	GetReply(ctx context.Context, id string) (*domain.Reply, error)
	ListReplies(ctx context.Context, noteID string, limit, offset int) ([]*domain.Reply, error)
	DeleteReply(ctx context.Context, id string) error

	// Preferences
	GetPreferences(ctx context.Context, userID string) (*domain.UserPreferences, error)
	UpsertPreferences(ctx context.Context, p *domain.UserPreferences) error

	// Read model
	RefreshNoteDetails(ctx context.Context) (int, error)
	ReadModelState(ctx context.Context) (*domain.ReadModelState, error)
	GetNoteDetails(ctx context.Context, id string) (*domain.NoteDetails, error)
	GetNoteDetailsLive(ctx context.Context, id string) (*domain.NoteDetails, error)
	ListNoteDetails(ctx context.Context, ids []string) ([]*domain.NoteDetails, error)
	ListAllNoteDetails(ctx context.Context) ([]*domain.NoteDetails, error)
	FeedNotes(ctx context.Context, filter domain.NoteFilter) (*domain.NotePage, error)

	// Stats
	GetStats(ctx context.Context) (*domain.Stats, error)

	// Pending blob deletions
	EnqueueBlobDeletions(ctx context.Context, items []*domain.PendingBlobDeletion) error
	ListPendingBlobDeletions(ctx context.Context, limit int) ([]*domain.PendingBlobDeletion, error)
	AckBlobDeletion(ctx context.Context, objectKey string) error
	FailBlobDeletion(ctx context.Context, objectKey, lastErr string) error
}
