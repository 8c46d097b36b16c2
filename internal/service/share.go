package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/auth"
	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
)

// ShareLink is an issued read-only link to a note.
type ShareLink struct {
	NoteID    string    `json:"note_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ShareService issues and resolves share tokens. A token only works while its
// note still exists and is still marked shared.
type ShareService struct {
	tokens *auth.ShareTokens
	notes  *NoteService
	logger *slog.Logger
}

// NewShareService creates a new share service.
func NewShareService(tokens *auth.ShareTokens, notes *NoteService, logger *slog.Logger) *ShareService {
	return &ShareService{
		tokens: tokens,
		notes:  notes,
		logger: logger,
	}
}

// Issue creates a share link for a shared note.
func (s *ShareService) Issue(ctx context.Context, noteID string) (*ShareLink, error) {
	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !note.Shared {
		return nil, domainerrors.Conflict("note is not marked as shared")
	}

	token, expires, err := s.tokens.Issue(note.ID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to issue share token")
	}

	s.logger.Info("share link issued", "note_id", note.ID, "expires_at", expires)
	return &ShareLink{NoteID: note.ID, Token: token, ExpiresAt: expires}, nil
}

// Resolve returns the note behind a share token.
func (s *ShareService) Resolve(ctx context.Context, token string) (*domain.NoteDetails, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("share token rejected", "error", err)
		return nil, domainerrors.Unauthorized("share link is invalid or has expired")
	}

	note, err := s.notes.Get(ctx, claims.NoteID)
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) && domainErr.Code == domainerrors.CodeNotFound {
		return nil, domainerrors.NotFound("shared note no longer exists")
	}
	if err != nil {
		return nil, err
	}
	// Unsharing a note revokes every link to it.
	if !note.Shared {
		return nil, domainerrors.NotFound("shared note no longer exists")
	}
	return note, nil
}
