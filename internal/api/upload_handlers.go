package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/http/response"
	"github.com/racingnotes/racingnotes-server/internal/media"
	"github.com/racingnotes/racingnotes-server/internal/media/validate"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

// handleUploadNote creates a note from a multipart form with fields body,
// category, driver_id, session_id, shared, tags and files.
func (s *Server) handleUploadNote(w http.ResponseWriter, r *http.Request) {
	files, err := s.parseUpload(w, r)
	if err != nil {
		response.HandleError(w, r, err, s.logger)
		return
	}

	shared, err := formBool(r.MultipartForm, "shared")
	if err != nil {
		response.HandleError(w, r, err, s.logger)
		return
	}

	req := service.CreateNoteRequest{
		Body:      formValue(r.MultipartForm, "body"),
		Category:  formValue(r.MultipartForm, "category"),
		DriverID:  formValue(r.MultipartForm, "driver_id"),
		SessionID: formValue(r.MultipartForm, "session_id"),
		Shared:    shared,
		Tags:      formTags(r.MultipartForm),
	}

	note, err := s.services.Notes.Create(r.Context(), req, files)
	if err != nil {
		response.HandleError(w, r, err, s.logger)
		return
	}
	response.Created(w, note, s.logger)
}

// handleAttachMedia adds the files of a multipart form to an existing note.
func (s *Server) handleAttachMedia(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "id")

	files, err := s.parseUpload(w, r)
	if err != nil {
		response.HandleError(w, r, err, s.logger)
		return
	}

	note, err := s.services.Notes.AttachMedia(r.Context(), noteID, files)
	if err != nil {
		response.HandleError(w, r, err, s.logger)
		return
	}
	response.Created(w, note, s.logger)
}

// parseUpload parses the multipart body and reads every file part. Files
// whose declared size already exceeds the ceiling are not read past the
// sniffing window so the validator can reject them without buffering.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]media.Upload, error) {
	maxFile := s.opts.MaxUploadBytes
	if maxFile <= 0 {
		maxFile = validate.DefaultMaxBytes
	}
	// Oversized parts are still accepted on the wire so the caller gets a
	// FILE_TOO_LARGE error naming the file rather than a truncated body.
	limit := int64(maxFilesPerRequest)*maxFile*2 + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return nil, domainerrors.FileTooLarge(fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit))
		case errors.Is(err, http.ErrNotMultipart):
			return nil, domainerrors.Validation("expected a multipart/form-data body")
		default:
			return nil, domainerrors.Validation("malformed multipart body").WithCause(err)
		}
	}

	headers := slices.Concat(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"])
	if len(headers) > maxFilesPerRequest {
		return nil, domainerrors.Validationf("at most %d files can be uploaded at once", maxFilesPerRequest)
	}

	uploads := make([]media.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readPart(fh, maxFile)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader, maxFile int64) (media.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return media.Upload{}, domainerrors.Validationf("could not read %s", fh.Filename).WithCause(err)
	}
	defer f.Close()

	var src io.Reader = f
	if fh.Size > maxFile {
		src = io.LimitReader(f, validate.SniffLen)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return media.Upload{}, domainerrors.Validationf("could not read %s", fh.Filename).WithCause(err)
	}

	return media.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Data:        data,
	}, nil
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

func formBool(form *multipart.Form, key string) (bool, error) {
	raw := formValue(form, key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domainerrors.Validationf("%s must be true or false", key)
	}
	return v, nil
}

// formTags accepts repeated tags fields, comma separated values or both.
func formTags(form *multipart.Form) []string {
	var tags []string
	for _, key := range []string{"tags", "tags[]"} {
		for _, v := range form.Value[key] {
			tags = append(tags, splitList(v)...)
		}
	}
	return tags
}
