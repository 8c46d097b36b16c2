package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
	"github.com/racingnotes/racingnotes-server/internal/http/response"
)

// APIError is a custom error type that implements huma.StatusError.
// It renders as an RFC 7807 problem carrying the domain error code.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	response.Problem
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Detail
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.Status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return response.ProblemContentType
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{Problem: response.FromError(domainErr)}
			}
		}

		p := response.NewProblem(status, response.CodeForStatus(status), message)

		// Request validation failures list every offending field.
		var details []string
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}
		if len(details) > 0 && status < 500 {
			p.Details = details
		}
		return &APIError{Problem: p}
	}
}

// register wraps huma.Register so that every error a handler returns reaches
// the client as an APIError with the status of its domain code.
func register[I, O any](api huma.API, op huma.Operation, handler func(context.Context, *I) (*O, error)) {
	huma.Register(api, op, func(ctx context.Context, input *I) (*O, error) {
		out, err := handler(ctx, input)
		if err != nil {
			return nil, toStatusError(err)
		}
		return out, nil
	})
}

func toStatusError(err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	return huma.NewError(http.StatusInternalServerError, "unexpected error occurred", err)
}
