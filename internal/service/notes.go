package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/racingnotes/racingnotes-server/internal/blob"
	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/id"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/sse"
	"github.com/racingnotes/racingnotes-server/internal/store"
	"github.com/racingnotes/racingnotes-server/internal/util"
	"github.com/racingnotes/racingnotes-server/internal/validation"
)

// maxNoteTags bounds the tags on a single note, hashtags included.
const maxNoteTags = 30

// CreateNoteRequest is the input for creating a note.
type CreateNoteRequest struct {
	Body      string   `json:"body" validate:"notblank"`
	Category  string   `json:"category,omitempty" validate:"note_category"`
	DriverID  string   `json:"driver_id,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Shared    bool     `json:"shared"`
	Tags      []string `json:"tags,omitempty" validate:"max=30,dive,max=100"`
}

// UpdateNoteRequest changes a note. Nil fields are left as they are; an empty
// DriverID or SessionID clears the link. A non-nil Tags replaces the tag set.
type UpdateNoteRequest struct {
	Body      *string   `json:"body,omitempty" validate:"omitempty,notblank"`
	Category  *string   `json:"category,omitempty" validate:"omitempty,note_category"`
	DriverID  *string   `json:"driver_id,omitempty"`
	SessionID *string   `json:"session_id,omitempty"`
	Shared    *bool     `json:"shared,omitempty"`
	Tags      *[]string `json:"tags,omitempty" validate:"omitempty,max=30,dive,max=100"`
}

// NoteService implements note creation, reads, edits and deletion including
// the media ingestion pipeline.
type NoteService struct {
	store     store.Store
	pipeline  *media.Pipeline
	blobs     *blob.Client
	cache     *cache.Cache
	readModel *ReadModelService
	search    *SearchService
	validator *validation.Validator
	metrics   *metrics.Metrics
	feedTTL   time.Duration
	logger    *slog.Logger

	now func() time.Time
	notifier
}

// NewNoteService creates a new note service. search may be nil.
func NewNoteService(
	store store.Store,
	pipeline *media.Pipeline,
	blobs *blob.Client,
	c *cache.Cache,
	readModel *ReadModelService,
	search *SearchService,
	feedTTL time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *NoteService {
	return &NoteService{
		store:     store,
		pipeline:  pipeline,
		blobs:     blobs,
		cache:     c,
		readModel: readModel,
		search:    search,
		validator: validation.New(),
		metrics:   m,
		feedTTL:   feedTTL,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the request and every file, compresses and uploads the
// files, then writes the note, its tags and its media rows in one
// transaction. Uploaded blobs are removed again if any later step fails.
func (s *NoteService) Create(ctx context.Context, req CreateNoteRequest, files []media.Upload) (*domain.NoteDetails, error) {
	// 1. Validate the request and its references.
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	body, err := normalizeBody(req.Body)
	if err != nil {
		return nil, err
	}
	category, err := domain.ParseNoteCategory(req.Category)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	if err := s.checkReferences(ctx, req.DriverID, req.SessionID); err != nil {
		return nil, err
	}
	tags, err := mergeTags(req.Tags, body)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note := &domain.Note{
		ID:        id.New(),
		Body:      body,
		DriverID:  req.DriverID,
		SessionID: req.SessionID,
		Category:  category,
		Shared:    req.Shared,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 2. Validate, compress and upload every file before touching the database.
	rows, err := s.ingest(ctx, note.ID, files)
	if err != nil {
		return nil, err
	}

	// 3. Persist the note, tag links and media rows together.
	if err := s.store.CreateNote(ctx, note, tags, rows); err != nil {
		s.discardBlobs(ctx, rows, "create note failed")
		return nil, translateError(s.logger, err)
	}

	s.logger.Info("note created",
		"note_id", note.ID,
		"category", note.Category,
		"tags", len(tags),
		"media", len(rows),
	)

	// 4. Refresh derived state.
	s.afterWrite(ctx, note.ID)
	s.emit(sse.NewNoteEvent(sse.EventNoteCreated, note.ID))

	return s.Get(ctx, note.ID)
}

// Get returns a note with its details. The read model is used while it is
// fresh; notes written after the last refresh are joined live.
func (s *NoteService) Get(ctx context.Context, noteID string) (*domain.NoteDetails, error) {
	state, err := s.store.ReadModelState(ctx)
	if err == nil && !state.Stale {
		details, err := s.store.GetNoteDetails(ctx, noteID)
		if err == nil {
			return details, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, translateError(s.logger, err)
		}
	}

	details, err := s.store.GetNoteDetailsLive(ctx, noteID)
	if err != nil {
		return nil, notFound(s.logger, err, "note", noteID)
	}
	return details, nil
}

// Feed returns one page of notes matching filter, newest first. Pages are
// cached per canonical filter signature until the next write or TTL expiry.
func (s *NoteService) Feed(ctx context.Context, filter domain.NoteFilter) (*domain.NotePage, error) {
	filter.Normalize()
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	// Stored labels are folded, so the filter must be folded the same way.
	if len(filter.Tags) > 0 {
		tags := util.NormalizeTagLabels(filter.Tags)
		if len(tags) == 0 {
			return filter.EmptyPage(), nil
		}
		filter.Tags = tags
	}

	key := cache.Signature(filter.Params())
	return cache.Fetch(ctx, s.cache, cache.NamespaceFeed, key, s.feedTTL, func(ctx context.Context) (*domain.NotePage, error) {
		page, err := s.store.FeedNotes(ctx, filter)
		if err != nil {
			return nil, translateError(s.logger, err)
		}
		return page, nil
	})
}

// Update applies req to an existing note.
func (s *NoteService) Update(ctx context.Context, noteID string, req UpdateNoteRequest) (*domain.NoteDetails, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, notFound(s.logger, err, "note", noteID)
	}

	bodyChanged := false
	if req.Body != nil {
		body, err := normalizeBody(*req.Body)
		if err != nil {
			return nil, err
		}
		bodyChanged = body != note.Body
		note.Body = body
	}
	if req.Category != nil {
		category, err := domain.ParseNoteCategory(*req.Category)
		if err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
		note.Category = category
	}
	if req.DriverID != nil {
		note.DriverID = *req.DriverID
	}
	if req.SessionID != nil {
		note.SessionID = *req.SessionID
	}
	if req.Shared != nil {
		note.Shared = *req.Shared
	}
	if err := s.checkReferences(ctx, note.DriverID, note.SessionID); err != nil {
		return nil, err
	}

	// Tags are rewritten when supplied, or when a new body brings new hashtags.
	var tags []string
	switch {
	case req.Tags != nil:
		if tags, err = mergeTags(*req.Tags, note.Body); err != nil {
			return nil, err
		}
	case bodyChanged && len(util.ExtractHashtags(note.Body)) > 0:
		current, err := s.store.GetNoteTags(ctx, noteID)
		if err != nil {
			return nil, translateError(s.logger, err)
		}
		if tags, err = mergeTags(current, note.Body); err != nil {
			return nil, err
		}
	}

	note.UpdatedAt = s.now()
	if err := s.store.UpdateNote(ctx, note, tags); err != nil {
		return nil, notFound(s.logger, err, "note", noteID)
	}

	s.logger.Info("note updated", "note_id", noteID, "tags_rewritten", tags != nil)
	s.afterWrite(ctx, noteID)
	s.emit(sse.NewNoteEvent(sse.EventNoteUpdated, noteID))

	return s.Get(ctx, noteID)
}

// Delete removes a note and everything attached to it, then deletes its
// blobs. Blobs that cannot be deleted are queued for the reconciliation sweep.
func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	removed, err := s.store.DeleteNote(ctx, noteID)
	if err != nil {
		return notFound(s.logger, err, "note", noteID)
	}

	s.logger.Info("note deleted", "note_id", noteID, "media", len(removed))

	s.afterWrite(ctx)
	if s.search != nil {
		ids := []string{noteID}
		for _, m := range removed {
			ids = append(ids, m.ID)
		}
		if err := s.search.Remove(ids...); err != nil {
			s.logger.Warn("failed to remove note from search index", "note_id", noteID, "error", err)
		}
	}

	s.emit(sse.NewNoteEvent(sse.EventNoteDeleted, noteID))
	s.discardBlobs(ctx, removed, "note deleted")
	return nil
}

// AttachMedia runs files through the pipeline and attaches them to an existing note.
func (s *NoteService) AttachMedia(ctx context.Context, noteID string, files []media.Upload) (*domain.NoteDetails, error) {
	if len(files) == 0 {
		return nil, domainerrors.Validation("no files provided")
	}
	if _, err := s.store.GetNote(ctx, noteID); err != nil {
		return nil, notFound(s.logger, err, "note", noteID)
	}

	rows, err := s.ingest(ctx, noteID, files)
	if err != nil {
		return nil, err
	}

	if err := s.store.AddMedia(ctx, noteID, rows); err != nil {
		s.discardBlobs(ctx, rows, "attach media failed")
		return nil, notFound(s.logger, err, "note", noteID)
	}

	s.logger.Info("media attached", "note_id", noteID, "media", len(rows))
	s.afterWrite(ctx, noteID)
	s.emit(sse.NewNoteEvent(sse.EventNoteUpdated, noteID))

	return s.Get(ctx, noteID)
}

// DeleteMedia removes one media row and its blobs.
func (s *NoteService) DeleteMedia(ctx context.Context, mediaID string) error {
	m, err := s.store.DeleteMedia(ctx, mediaID)
	if err != nil {
		return notFound(s.logger, err, "media", mediaID)
	}

	s.logger.Info("media deleted", "media_id", mediaID, "note_id", m.NoteID)

	if s.search != nil {
		if err := s.search.Remove(mediaID); err != nil {
			s.logger.Warn("failed to remove media from search index", "media_id", mediaID, "error", err)
		}
	}
	s.afterWrite(ctx, m.NoteID)
	s.emit(sse.NewNoteEvent(sse.EventNoteUpdated, m.NoteID))

	s.discardBlobs(ctx, []*domain.Media{m}, "media deleted")
	return nil
}

// ingest validates every file, then compresses every file, then uploads
// every file. Nothing is uploaded unless all files validate and compress.
// On an upload failure the blobs already written by this call are removed.
func (s *NoteService) ingest(ctx context.Context, noteID string, files []media.Upload) ([]*domain.Media, error) {
	if len(files) == 0 {
		return nil, nil
	}

	for i := range files {
		if _, err := s.pipeline.Validate(&files[i]); err != nil {
			return nil, translateError(s.logger, err)
		}
	}

	processed := make([]*media.Processed, 0, len(files))
	for _, f := range files {
		p, err := s.pipeline.Process(ctx, f)
		if err != nil {
			return nil, translateError(s.logger, err)
		}
		processed = append(processed, p)
	}

	rows := make([]*domain.Media, 0, len(processed))
	for _, p := range processed {
		m, err := s.upload(ctx, noteID, p)
		s.metrics.RecordUpload(string(p.MediaType), int64(len(p.Data)), err)
		if err != nil {
			s.discardBlobs(ctx, rows, "upload rolled back")
			return nil, translateError(s.logger, err)
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// upload stores one processed file and its thumbnail. A failed thumbnail
// does not fail the upload; the media row simply has no preview.
func (s *NoteService) upload(ctx context.Context, noteID string, p *media.Processed) (*domain.Media, error) {
	obj, err := s.blobs.Upload(ctx, p.Filename, p.ContentType, p.Data)
	if err != nil {
		return nil, err
	}

	m := &domain.Media{
		ID:              id.New(),
		NoteID:          noteID,
		FileURL:         obj.URL,
		ObjectKey:       obj.Key,
		Type:            p.MediaType,
		ContentType:     p.ContentType,
		SizeMB:          domain.BytesToMB(obj.Size),
		Filename:        p.Filename,
		Width:           p.Width,
		Height:          p.Height,
		DurationSeconds: p.DurationSeconds,
		Blurhash:        p.Blurhash,
		CreatedAt:       s.now(),
	}

	if len(p.Thumbnail) > 0 {
		thumbKey := blob.ThumbnailKey(obj.Key)
		thumb, err := s.blobs.Put(ctx, thumbKey, "image/jpeg", p.Thumbnail)
		if err != nil {
			s.logger.Warn("thumbnail upload failed", "key", thumbKey, "error", err)
			s.enqueueDeletions(ctx, []*domain.PendingBlobDeletion{{
				ObjectKey: thumbKey,
				Reason:    "thumbnail upload failed",
				LastError: err.Error(),
			}})
		} else {
			m.ThumbnailURL = thumb.URL
			m.ThumbnailKey = thumb.Key
		}
	}
	return m, nil
}

// discardBlobs deletes the blobs of media rows that no longer exist (or never
// made it into the database). Failures are recorded in the pending deletion
// ledger instead of being returned: the caller's outcome is already decided.
func (s *NoteService) discardBlobs(ctx context.Context, rows []*domain.Media, reason string) {
	if len(rows) == 0 {
		return
	}
	// Cleanup must run even when the request context is already cancelled.
	ctx = context.WithoutCancel(ctx)

	var pending []*domain.PendingBlobDeletion
	for _, m := range rows {
		for _, key := range m.ObjectKeys() {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Warn("blob deletion failed, queued for sweep",
					"key", key,
					"reason", reason,
					"error", err,
				)
				pending = append(pending, &domain.PendingBlobDeletion{
					ObjectKey: key,
					FileURL:   s.blobs.URL(key),
					Reason:    reason,
					LastError: err.Error(),
				})
			}
		}
	}
	s.enqueueDeletions(ctx, pending)
}

func (s *NoteService) enqueueDeletions(ctx context.Context, items []*domain.PendingBlobDeletion) {
	if len(items) == 0 {
		return
	}
	now := s.now()
	for _, item := range items {
		item.CreatedAt = now
		item.UpdatedAt = now
	}
	if err := s.store.EnqueueBlobDeletions(context.WithoutCancel(ctx), items); err != nil {
		s.logger.Error("failed to record pending blob deletions", "count", len(items), "error", err)
	}
}

// afterWrite refreshes the read model, drops cached queries and reindexes the
// touched notes. Failures are logged: the write itself has committed.
func (s *NoteService) afterWrite(ctx context.Context, noteIDs ...string) {
	ctx = context.WithoutCancel(ctx)

	if _, err := s.readModel.Refresh(ctx); err != nil {
		s.logger.Warn("read model refresh failed", "error", err)
	}
	s.cache.Invalidate(cache.NamespaceFeed, cache.NamespaceMedia, cache.NamespaceTags, cache.NamespaceStats)

	if s.search == nil {
		return
	}
	for _, noteID := range noteIDs {
		if err := s.search.IndexNote(ctx, noteID); err != nil {
			s.logger.Warn("failed to index note", "note_id", noteID, "error", err)
		}
	}
}

// checkReferences verifies that the linked driver and session exist. A driver
// from another series than the session is allowed but logged.
func (s *NoteService) checkReferences(ctx context.Context, driverID, sessionID string) error {
	var (
		driver  *domain.Driver
		session *domain.Session
		err     error
	)
	if driverID != "" {
		if driver, err = s.store.GetDriver(ctx, driverID); err != nil {
			return referenceError(s.logger, err, "driver", driverID)
		}
	}
	if sessionID != "" {
		if session, err = s.store.GetSession(ctx, sessionID); err != nil {
			return referenceError(s.logger, err, "session", sessionID)
		}
	}
	if driver != nil && session != nil && driver.SeriesID != session.SeriesID {
		s.logger.Warn("driver and session belong to different series",
			"driver_id", driver.ID,
			"driver_series", driver.SeriesID,
			"session_id", session.ID,
			"session_series", session.SeriesID,
		)
	}
	return nil
}

func referenceError(logger *slog.Logger, err error, entity, entityID string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.InvalidReferencef("%s %s does not exist", entity, entityID).WithCause(err)
	}
	return translateError(logger, err)
}

// normalizeBody trims the body, converts pasted HTML and enforces the length limit.
func normalizeBody(raw string) (string, error) {
	body := util.NormalizeBody(raw)
	if body == "" {
		return "", domainerrors.ValidationWithDetails("note body is required", map[string]string{
			"body": "must not be empty",
		})
	}
	if n := utf8.RuneCountInString(body); n > domain.MaxNoteBodyLength {
		return "", domainerrors.ValidationWithDetails("note body is too long", map[string]any{
			"body":   "must be at most 5000 characters",
			"length": n,
		})
	}
	return body, nil
}

// mergeTags normalizes explicit tags and appends hashtags found in body.
func mergeTags(explicit []string, body string) ([]string, error) {
	labels := util.NormalizeTagLabels(append(append([]string{}, explicit...), util.ExtractHashtags(body)...))
	if len(labels) > maxNoteTags {
		return nil, domainerrors.Validationf("a note can have at most %d tags", maxNoteTags)
	}
	return labels, nil
}

func validateFilter(f domain.NoteFilter) error {
	for _, c := range f.Categories {
		if !c.Valid() {
			return domainerrors.Validationf("unknown category %q", c)
		}
	}
	for _, t := range f.SessionTypes {
		if !t.Valid() {
			return domainerrors.Validationf("unknown session type %q", t)
		}
	}
	if f.SessionFrom != nil && f.SessionTo != nil && f.SessionFrom.After(*f.SessionTo) {
		return domainerrors.Validation("session date range is inverted")
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return domainerrors.Validation("created date range is inverted")
	}
	return nil
}
