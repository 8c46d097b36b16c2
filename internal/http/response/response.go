// Package response writes JSON and RFC 7807 problem responses for handlers
// that sit outside the huma operation layer (multipart uploads, file serving).
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
)

// ProblemContentType is the media type of every error body.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 error body extended with a machine readable code.
type Problem struct {
	Type     string `json:"type,omitempty" doc:"URI reference identifying the problem type"`
	Title    string `json:"title" doc:"Short summary of the problem type"`
	Status   int    `json:"status" doc:"HTTP status code"`
	Detail   string `json:"detail,omitempty" doc:"Human-readable explanation"`
	Instance string `json:"instance,omitempty" doc:"Request path that produced the problem"`
	Code     string `json:"code" doc:"Machine-readable error code"`
	Details  any    `json:"details,omitempty" doc:"Additional error details"`
}

// NewProblem builds a problem for status with the given code and detail.
func NewProblem(status int, code domainerrors.Code, detail string) Problem {
	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Code:   string(code),
	}
}

// FromError maps err to a problem. Domain errors keep their code, message
// and details; anything else becomes an opaque 500.
func FromError(err error) Problem {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		p := NewProblem(domainErr.HTTPStatus(), domainErr.Code, domainErr.Message)
		p.Details = domainErr.Details
		return p
	}
	return NewProblem(http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error")
}

// CodeForStatus maps a bare HTTP status to the closest domain code.
func CodeForStatus(status int) domainerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domainerrors.CodeValidation
	case http.StatusUnauthorized:
		return domainerrors.CodeUnauthorized
	case http.StatusNotFound:
		return domainerrors.CodeNotFound
	case http.StatusConflict:
		return domainerrors.CodeConflict
	case http.StatusRequestEntityTooLarge:
		return domainerrors.CodeFileTooLarge
	case http.StatusUnsupportedMediaType:
		return domainerrors.CodeUnsupportedType
	case http.StatusTooManyRequests:
		return domainerrors.CodeRateLimited
	default:
		return domainerrors.CodeInternal
	}
}

// JSON writes data as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes a 200 OK response.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteProblem writes p as an application/problem+json body.
func WriteProblem(w http.ResponseWriter, r *http.Request, p Problem, logger *slog.Logger) {
	if r != nil && p.Instance == "" {
		p.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(p.Status)

	if err := json.NewEncoder(w).Encode(p); err != nil && logger != nil {
		logger.Error("Failed to encode problem response", "error", err)
	}
}

// Error writes a problem with a code derived from status.
func Error(w http.ResponseWriter, r *http.Request, status int, detail string, logger *slog.Logger) {
	WriteProblem(w, r, NewProblem(status, CodeForStatus(status), detail), logger)
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, logger *slog.Logger) {
	Error(w, r, http.StatusBadRequest, detail, logger)
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string, logger *slog.Logger) {
	Error(w, r, http.StatusNotFound, detail, logger)
}

// TooManyRequests writes a 429 problem.
func TooManyRequests(w http.ResponseWriter, r *http.Request, detail string, logger *slog.Logger) {
	Error(w, r, http.StatusTooManyRequests, detail, logger)
}

// HandleError writes the problem for err. Server-side failures are logged
// with their cause since the body never carries it.
func HandleError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	p := FromError(err)
	if p.Status >= http.StatusInternalServerError && logger != nil {
		logger.Error("Request failed", "error", err, "code", p.Code, "path", r.URL.Path)
	}
	WriteProblem(w, r, p, logger)
}
