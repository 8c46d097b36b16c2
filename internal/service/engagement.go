package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/cache"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/id"
	"github.com/racingnotes/racingnotes-server/internal/sse"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// maxReplyLength matches the replies.body CHECK constraint.
const maxReplyLength = 1000

// EngagementService manages likes and replies on notes. Counts live in the
// read model, so every change triggers a refresh.
type EngagementService struct {
	store     store.Store
	cache     *cache.Cache
	readModel *ReadModelService
	logger    *slog.Logger
	notifier
}

// NewEngagementService creates a new engagement service.
func NewEngagementService(store store.Store, c *cache.Cache, readModel *ReadModelService, logger *slog.Logger) *EngagementService {
	return &EngagementService{
		store:     store,
		cache:     c,
		readModel: readModel,
		logger:    logger,
	}
}

// Like marks a note as liked by the local user. Liking twice is a no-op.
func (s *EngagementService) Like(ctx context.Context, noteID string) error {
	err := s.store.AddLike(ctx, &domain.Like{
		ID:        id.New(),
		NoteID:    noteID,
		CreatedAt: time.Now().UTC(),
	})
	switch {
	case domainerrors.Is(err, store.ErrAlreadyExists):
		return nil
	case domainerrors.Is(err, store.ErrInvalidReference):
		return domainerrors.NotFoundf("note %s not found", noteID).WithCause(err)
	case err != nil:
		return translateError(s.logger, err)
	}

	s.changed(ctx, noteID)
	return nil
}

// Unlike removes the local user's like. Unliking a note that is not liked is a no-op.
func (s *EngagementService) Unlike(ctx context.Context, noteID string) error {
	err := s.store.RemoveLike(ctx, noteID, "")
	if domainerrors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return translateError(s.logger, err)
	}

	s.changed(ctx, noteID)
	return nil
}

// Reply adds a reply to a note.
func (s *EngagementService) Reply(ctx context.Context, noteID, body string) (*domain.Reply, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domainerrors.Validation("reply body is required")
	}
	if len([]rune(body)) > maxReplyLength {
		return nil, domainerrors.Validationf("reply body must be at most %d characters", maxReplyLength)
	}

	r := &domain.Reply{
		ID:        id.New(),
		NoteID:    noteID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateReply(ctx, r); err != nil {
		if domainerrors.Is(err, store.ErrInvalidReference) {
			return nil, domainerrors.NotFoundf("note %s not found", noteID).WithCause(err)
		}
		return nil, translateError(s.logger, err)
	}

	s.logger.Info("reply added", "note_id", noteID, "reply_id", r.ID)
	s.changed(ctx, noteID)
	return r, nil
}

// ListReplies returns replies to a note, oldest first.
func (s *EngagementService) ListReplies(ctx context.Context, noteID string, limit, offset int) ([]*domain.Reply, error) {
	if _, err := s.store.GetNote(ctx, noteID); err != nil {
		return nil, notFound(s.logger, err, "note", noteID)
	}
	limit, offset = store.ClampPage(limit, offset)
	replies, err := s.store.ListReplies(ctx, noteID, limit, offset)
	if err != nil {
		return nil, translateError(s.logger, err)
	}
	return replies, nil
}

// DeleteReply removes a reply.
func (s *EngagementService) DeleteReply(ctx context.Context, replyID string) error {
	reply, err := s.store.GetReply(ctx, replyID)
	if err != nil {
		return notFound(s.logger, err, "reply", replyID)
	}
	if err := s.store.DeleteReply(ctx, replyID); err != nil {
		return notFound(s.logger, err, "reply", replyID)
	}
	s.changed(ctx, reply.NoteID)
	return nil
}

func (s *EngagementService) changed(ctx context.Context, noteID string) {
	if _, err := s.readModel.Refresh(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("read model refresh failed", "error", err)
	}
	s.cache.Invalidate(cache.NamespaceFeed)
	s.emit(sse.NewNoteEvent(sse.EventEngagementChanged, noteID))
}
