package api

import (
	"github.com/racingnotes/racingnotes-server/internal/blob"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/ratelimit"
	"github.com/racingnotes/racingnotes-server/internal/search"
	"github.com/racingnotes/racingnotes-server/internal/service"
	"github.com/racingnotes/racingnotes-server/internal/sse"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Notes       *service.NoteService
	Reference   *service.ReferenceService
	Tags        *service.TagService
	Engagement  *service.EngagementService
	Preferences *service.PreferencesService
	Stats       *service.StatsService
	Share       *service.ShareService
	Search      *service.SearchService
	ReadModel   *service.ReadModelService
	Sweeper     *service.Sweeper
}

// Infra holds the components the server inspects or serves directly.
// Every field is optional.
type Infra struct {
	Index   *search.Index      // Health checks
	Local   *blob.LocalBackend // Serves /media/* when the bucket is on disk
	Metrics *metrics.Metrics   // Serves /metrics
	Events  *sse.Manager       // Serves /api/v1/events

	UploadLimiter *ratelimit.KeyedRateLimiter
}

// Options tunes the HTTP surface.
type Options struct {
	Version        string
	AllowedOrigins []string
	MaxUploadBytes int64 // Per-file ceiling enforced by the media validator
}
