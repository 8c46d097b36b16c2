package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/blob"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

const (
	// sweepBatchSize bounds the pending deletions retried per sweep.
	sweepBatchSize = 500
	// orphanGracePeriod protects blobs of uploads whose note transaction has
	// not committed yet.
	orphanGracePeriod = time.Hour
)

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Retried        int  `json:"retried"`
	Deleted        int  `json:"deleted"`
	Failed         int  `json:"failed"`
	OrphansFound   int  `json:"orphans_found"`
	OrphansDeleted int  `json:"orphans_deleted"`
	Pending        int  `json:"pending"`
	ScanSkipped    bool `json:"scan_skipped"` // The backend cannot list its objects
}

// Sweeper reconciles blob storage with the database. It retries deletions
// recorded in the pending ledger and removes stored objects that no media
// row references.
type Sweeper struct {
	store   store.Store
	blobs   *blob.Client
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time
	mu  sync.Mutex
}

// NewSweeper creates a new blob sweeper.
func NewSweeper(store store.Store, blobs *blob.Client, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:   store,
		blobs:   blobs,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Sweep runs one reconciliation pass. Concurrent calls are serialized.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &SweepResult{}
	if err := s.retryPending(ctx, res); err != nil {
		return nil, err
	}
	if err := s.removeOrphans(ctx, res); err != nil {
		return nil, err
	}

	remaining, err := s.store.ListPendingBlobDeletions(ctx, sweepBatchSize)
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	res.Pending = len(remaining)

	s.metrics.RecordSweep(res.Deleted+res.OrphansDeleted, res.Pending)
	s.logger.Info("blob sweep finished",
		"retried", res.Retried,
		"deleted", res.Deleted,
		"failed", res.Failed,
		"orphans_found", res.OrphansFound,
		"orphans_deleted", res.OrphansDeleted,
		"pending", res.Pending,
	)
	return res, nil
}

func (s *Sweeper) retryPending(ctx context.Context, res *SweepResult) error {
	pending, err := s.store.ListPendingBlobDeletions(ctx, sweepBatchSize)
	if err != nil {
		return translateError(s.logger, err)
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Retried++

		if err := s.blobs.Delete(ctx, p.ObjectKey); err != nil {
			res.Failed++
			s.logger.Warn("pending blob deletion failed again",
				"key", p.ObjectKey,
				"attempts", p.Attempts+1,
				"error", err,
			)
			if err := s.store.FailBlobDeletion(ctx, p.ObjectKey, err.Error()); err != nil {
				return translateError(s.logger, err)
			}
			continue
		}

		if err := s.store.AckBlobDeletion(ctx, p.ObjectKey); err != nil {
			return translateError(s.logger, err)
		}
		res.Deleted++
	}
	return nil
}

func (s *Sweeper) removeOrphans(ctx context.Context, res *SweepResult) error {
	objects, err := s.blobs.List(ctx)
	if errors.Is(err, blob.ErrListUnsupported) {
		res.ScanSkipped = true
		return nil
	}
	if err != nil {
		// A failed scan leaves nothing half done; report it without failing the pass.
		s.logger.Warn("blob scan failed", "error", err)
		res.ScanSkipped = true
		return nil
	}

	referenced, err := s.store.ReferencedObjectKeys(ctx)
	if err != nil {
		return translateError(s.logger, err)
	}

	cutoff := s.now().Add(-orphanGracePeriod)
	var failed []*domain.PendingBlobDeletion
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) || strings.HasPrefix(obj.Key, ".") {
			continue
		}
		res.OrphansFound++

		if err := s.blobs.Delete(ctx, obj.Key); err != nil {
			failed = append(failed, &domain.PendingBlobDeletion{
				ObjectKey: obj.Key,
				FileURL:   s.blobs.URL(obj.Key),
				Reason:    "orphaned object",
				LastError: err.Error(),
				CreatedAt: s.now().UTC(),
				UpdatedAt: s.now().UTC(),
			})
			continue
		}
		res.OrphansDeleted++
		s.logger.Info("orphaned blob deleted", "key", obj.Key, "size", obj.Size)
	}

	if len(failed) > 0 {
		if err := s.store.EnqueueBlobDeletions(ctx, failed); err != nil {
			return translateError(s.logger, err)
		}
	}
	return nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("blob sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("blob sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("blob sweep failed", "error", err)
			}
		}
	}
}
