package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// StatsService reports notebook totals.
type StatsService struct {
	store  store.Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(store store.Store, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns counts of notes, media, tags, drivers and sessions plus the
// stored media size in megabytes.
func (s *StatsService) Get(ctx context.Context) (*domain.Stats, error) {
	return cache.Fetch(ctx, s.cache, cache.NamespaceStats, "totals", s.ttl, func(ctx context.Context) (*domain.Stats, error) {
		st, err := s.store.GetStats(ctx)
		if err != nil {
			return nil, translateError(s.logger, err)
		}
		return st, nil
	})
}

// CacheStats reports query cache usage.
func (s *StatsService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every cached query result.
func (s *StatsService) ClearCache() {
	s.cache.Flush()
	s.logger.Info("query cache cleared")
}
