package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// ReadModelService rebuilds the denormalized notes_with_details table.
// Refreshes are serialized; a refresh requested while another is running
// waits for it and then runs again so the caller sees its own writes.
type ReadModelService struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu sync.Mutex
}

// NewReadModelService creates a new read model service.
func NewReadModelService(store store.Store, m *metrics.Metrics, logger *slog.Logger) *ReadModelService {
	return &ReadModelService{
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Refresh rebuilds the read model and returns the number of rows written.
func (s *ReadModelService) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	rows, err := s.store.RefreshNoteDetails(ctx)
	s.metrics.RecordRefresh(err)
	if err != nil {
		return 0, translateError(s.logger, err)
	}

	s.logger.Debug("read model refreshed",
		"rows", rows,
		"elapsed", time.Since(start),
	)
	return rows, nil
}

// State reports when the read model was last refreshed.
func (s *ReadModelService) State(ctx context.Context) (*domain.ReadModelState, error) {
	state, err := s.store.ReadModelState(ctx)
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	return state, nil
}
