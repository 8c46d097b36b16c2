package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
	"github.com/racingnotes/racingnotes-server/internal/util"
)

// Tag listing bounds.
const (
	DefaultPopularTags = 10
	DefaultTagSearch   = 20
	maxTagResults      = 100
)

// TagService lists and suggests tags. Tags are created implicitly when a
// note uses them; there is no standalone create.
type TagService struct {
	store  store.Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// ListTags returns every tag ordered by label with usage counts.
func (s *TagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return cache.Fetch(ctx, s.cache, cache.NamespaceTags, "all", s.ttl, func(ctx context.Context) ([]*domain.Tag, error) {
		tags, err := s.store.ListTags(ctx)
		return tags, translateError(s.logger, err)
	})
}

// PopularTags returns the most used tags.
func (s *TagService) PopularTags(ctx context.Context, limit int) ([]*domain.Tag, error) {
	limit = clampTagLimit(limit, DefaultPopularTags)
	key := "popular:" + strconv.Itoa(limit)
	return cache.Fetch(ctx, s.cache, cache.NamespaceTags, key, s.ttl, func(ctx context.Context) ([]*domain.Tag, error) {
		tags, err := s.store.PopularTags(ctx, limit)
		return tags, translateError(s.logger, err)
	})
}

// SearchTags returns tags whose label contains query. The query is
// normalized the same way labels are, so "#Setup" finds "setup".
func (s *TagService) SearchTags(ctx context.Context, query string, limit int) ([]*domain.Tag, error) {
	limit = clampTagLimit(limit, DefaultTagSearch)
	q := util.NormalizeTagLabel(query)
	if q == "" {
		return []*domain.Tag{}, nil
	}
	tags, err := s.store.SearchTags(ctx, q, limit)
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	return tags, nil
}

// Suggest proposes tags for a draft note body: racing terms it mentions and
// its hashtags, followed by existing tags it mentions that are not already
// suggested.
func (s *TagService) Suggest(ctx context.Context, body string) ([]string, error) {
	suggestions := util.SuggestTags(util.PlainText(body))

	existing, err := s.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(body)
	seen := make(map[string]bool, len(suggestions))
	for _, t := range suggestions {
		seen[t] = true
	}
	for _, t := range existing {
		if !seen[t.Label] && len(t.Label) > 2 && strings.Contains(lower, t.Label) {
			suggestions = append(suggestions, t.Label)
			seen[t.Label] = true
		}
	}
	return suggestions, nil
}

func clampTagLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxTagResults)
}
