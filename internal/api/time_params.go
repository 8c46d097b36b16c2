package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	domainerrors "github.com/racingnotes/racingnotes-server/internal/errors"
)

// parseTimeParam parses a date or timestamp query parameter. It accepts:
//   - a calendar date: "2025-02-15"
//   - RFC3339 with or without fractional seconds: "2025-02-15T18:30:00Z"
//   - epoch milliseconds: "1739644200000"
//
// A bare date used as an upper bound covers the whole day.
func parseTimeParam(name, raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(domain.SessionDateLayout, raw); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}
	return nil, domainerrors.Validationf("%s must be a date (YYYY-MM-DD), an RFC3339 timestamp or epoch milliseconds", name)
}

// parseBoolParam parses an optional tri-state boolean parameter.
func parseBoolParam(name, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domainerrors.Validationf("%s must be true or false", name)
	}
	return &v, nil
}

// splitList splits a comma separated parameter, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
