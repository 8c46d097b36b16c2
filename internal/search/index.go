package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Index wraps a Bleve index of notes and media.
//
// All methods are safe for concurrent use. Rebuild takes the write lock.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger
}

// mappingVersion is bumped whenever buildIndexMapping changes so an existing
// index is rebuilt on startup.
const mappingVersion = "1"

// batchSize bounds memory while bulk indexing.
const batchSize = 500

// Open creates or opens the index. An index with an outdated mapping or one that
// fails to open is removed and recreated empty; the caller repopulates it.
func Open(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: index, logger: logger}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "notes.bleve")
	versionPath := filepath.Join(opts.DataPath, "notes.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, rebuilding", "new_version", mappingVersion)
		case string(existing) != mappingVersion:
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index != nil {
		logger.Info("opened search index", "path", indexPath)
		return &Index{index: index, path: indexPath, logger: logger}, nil
	}

	index, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		logger.Warn("failed to write search version file", "error", err)
	}
	logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)

	return &Index{index: index, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Index adds or replaces documents.
func (s *Index) Index(docs ...*Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *Index) Delete(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed documents.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the whole index with docs.
func (s *Index) Rebuild(docs []*Document) error {
	s.mu.Lock()
	if err := s.reset(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.Index(docs...); err != nil {
		return err
	}
	s.logger.Info("rebuilt search index", "documents", len(docs))
	return nil
}

// reset swaps in an empty index. Callers hold the write lock.
func (s *Index) reset() error {
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if rmErr := os.RemoveAll(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("remove index: %w", rmErr)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	return nil
}
