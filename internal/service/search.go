package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/search"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// SearchService bridges the fuzzy search index with the store. The index
// holds IDs and ranking fields only; hits are resolved back to rows so
// responses always carry current data.
type SearchService struct {
	index  *search.Index
	store  store.Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.Index, store store.Store, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// NoteSearchPage is a page of fuzzy note matches.
type NoteSearchPage struct {
	Query   string                `json:"query"`
	Items   []*domain.NoteDetails `json:"items"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
	HasNext bool                  `json:"has_next"`
	TookMs  int64                 `json:"took_ms"`
}

// MediaSearchPage is a page of media_search rows.
type MediaSearchPage struct {
	Query   string                      `json:"query,omitempty"`
	Items   []*domain.MediaSearchResult `json:"items"`
	Total   int                         `json:"total"`
	Limit   int                         `json:"limit"`
	Offset  int                         `json:"offset"`
	HasNext bool                        `json:"has_next"`
}

// IndexNote (re)indexes a note and its media from the base tables.
func (s *SearchService) IndexNote(ctx context.Context, noteID string) error {
	details, err := s.store.GetNoteDetailsLive(ctx, noteID)
	if err != nil {
		return fmt.Errorf("load note: %w", err)
	}

	docs := []*search.Document{search.NoteDocument(details)}
	if len(details.Media) > 0 {
		ids := make([]string, len(details.Media))
		for i, m := range details.Media {
			ids[i] = m.ID
		}
		results, err := s.store.ListMediaResults(ctx, ids)
		if err != nil {
			return fmt.Errorf("load media: %w", err)
		}
		for _, r := range results {
			docs = append(docs, search.MediaDocument(r))
		}
	}

	if err := s.index.Index(docs...); err != nil {
		return fmt.Errorf("index note: %w", err)
	}
	s.logger.Debug("indexed note", "id", noteID, "documents", len(docs))
	return nil
}

// Remove drops documents by ID.
func (s *SearchService) Remove(ids ...string) error {
	return s.index.Delete(ids...)
}

// Reindex rebuilds the whole index from the store.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	notes, err := s.store.ListAllNoteDetails(ctx)
	if err != nil {
		return 0, translateError(s.logger, err)
	}
	media, err := s.store.ListAllMediaResults(ctx)
	if err != nil {
		return 0, translateError(s.logger, err)
	}

	docs := make([]*search.Document, 0, len(notes)+len(media))
	for _, n := range notes {
		docs = append(docs, search.NoteDocument(n))
	}
	for _, m := range media {
		docs = append(docs, search.MediaDocument(m))
	}

	if err := s.index.Rebuild(docs); err != nil {
		return 0, fmt.Errorf("rebuild search index: %w", err)
	}
	s.logger.Info("search index rebuilt", "notes", len(notes), "media", len(media))
	return len(docs), nil
}

// SearchNotes runs a typo-tolerant query over note bodies, tags, drivers and tracks.
func (s *SearchService) SearchNotes(ctx context.Context, q string, limit, offset int) (*NoteSearchPage, error) {
	filter := domain.NoteFilter{Query: q, Limit: limit, Offset: offset}
	filter.Normalize()

	res, err := s.index.Search(ctx, search.Params{
		Query:  filter.Query,
		Type:   search.DocTypeNote,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListNoteDetails(ctx, res.IDs())
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	total := int(res.Total)
	return &NoteSearchPage{
		Query:   filter.Query,
		Items:   items,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasNext: store.HasNext(total, filter.Limit, filter.Offset),
		TookMs:  res.TookMs,
	}, nil
}

// SearchMedia searches the media_search view. Without text the view is
// filtered directly; with text the fuzzy index ranks the matches.
func (s *SearchService) SearchMedia(ctx context.Context, filter domain.MediaFilter) (*MediaSearchPage, error) {
	filter.Normalize()
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domainerrors.Validationf("unknown media type %q", filter.Type)
	}

	key := cache.Signature(mediaFilterParams(filter))
	return cache.Fetch(ctx, s.cache, cache.NamespaceMedia, key, s.ttl, func(ctx context.Context) (*MediaSearchPage, error) {
		if filter.Query == "" {
			return s.filterMedia(ctx, filter)
		}
		return s.fuzzyMedia(ctx, filter)
	})
}

func (s *SearchService) filterMedia(ctx context.Context, filter domain.MediaFilter) (*MediaSearchPage, error) {
	items, total, err := s.store.SearchMedia(ctx, filter)
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	return &MediaSearchPage{
		Items:   items,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasNext: store.HasNext(total, filter.Limit, filter.Offset),
	}, nil
}

func (s *SearchService) fuzzyMedia(ctx context.Context, filter domain.MediaFilter) (*MediaSearchPage, error) {
	filters := map[string]string{}
	if filter.Type != "" {
		filters["media_type"] = string(filter.Type)
	}
	if filter.DriverID != "" {
		filters["driver_id"] = filter.DriverID
	}
	if filter.TrackID != "" {
		filters["track_id"] = filter.TrackID
	}
	if filter.SeriesID != "" {
		filters["series_id"] = filter.SeriesID
	}

	res, err := s.index.Search(ctx, search.Params{
		Query:   filter.Query,
		Type:    search.DocTypeMedia,
		Filters: filters,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListMediaResults(ctx, res.IDs())
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	total := int(res.Total)
	return &MediaSearchPage{
		Query:   filter.Query,
		Items:   items,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasNext: store.HasNext(total, filter.Limit, filter.Offset),
	}, nil
}

func mediaFilterParams(f domain.MediaFilter) map[string]string {
	return map[string]string{
		"q":      f.Query,
		"type":   string(f.Type),
		"driver": f.DriverID,
		"track":  f.TrackID,
		"series": f.SeriesID,
		"limit":  strconv.Itoa(f.Limit),
		"offset": strconv.Itoa(f.Offset),
	}
}
