// Package service implements the racing notes use cases on top of the store,
// the media pipeline, blob storage and the query cache.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/racingnotes/racingnotes-server/internal/blob"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/media/validate"
	"github.com/racingnotes/racingnotes-server/internal/store"
	"github.com/racingnotes/racingnotes-server/internal/util"
)

// translateError maps lower-layer errors to domain errors. Persistence errors
// other than the store sentinels become a generic PERSISTENCE_FAILED; their
// cause is logged here and kept in the chain for the API layer.
func translateError(logger *slog.Logger, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	var (
		unsupported *validate.UnsupportedTypeError
		tooLarge    *validate.TooLargeError
		empty       *validate.EmptyFileError
		compress    *media.CompressionError
		storageErr  *blob.StorageError
	)
	switch {
	case errors.As(err, &unsupported):
		return domainerrors.UnsupportedType(unsupported.Error()).WithCause(err)
	case errors.As(err, &tooLarge):
		return domainerrors.FileTooLarge(tooLarge.Error()).WithDetails(map[string]any{
			"filename":  tooLarge.Filename,
			"size":      tooLarge.Size,
			"max_bytes": tooLarge.Max,
			"max":       util.FormatFileSize(tooLarge.Max),
		}).WithCause(err)
	case errors.As(err, &empty):
		return domainerrors.Validation(empty.Error()).WithCause(err)
	case errors.As(err, &compress):
		return domainerrors.Compression(err, "could not compress "+compress.Filename)
	case errors.As(err, &storageErr):
		return domainerrors.Storage(err, "media upload failed, please retry").WithDetails(map[string]any{
			"kind":      string(storageErr.Kind),
			"retryable": storageErr.Retryable(),
		})
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("not found").WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists("already exists").WithCause(err)
	case errors.Is(err, store.ErrInvalidReference):
		return domainerrors.InvalidReferencef("referenced record does not exist").WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(err.Error()).WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		if logger != nil {
			logger.Error("persistence failure", "error", err)
		}
		return domainerrors.Persistence(err)
	}
}

// notFound maps store.ErrNotFound to a NOT_FOUND error naming the entity.
func notFound(logger *slog.Logger, err error, entity, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFoundf("%s %s not found", entity, id).WithCause(err)
	}
	return translateError(logger, err)
}
