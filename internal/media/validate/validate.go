// Package validate checks uploaded files against the media allow-list and size
// ceiling before any decoding or compression work is done.
package validate

import (
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/util"
)

// DefaultMaxBytes is the upload ceiling when none is configured (100 MB).
const DefaultMaxBytes int64 = 100 * 1024 * 1024

type allowedType struct {
	mediaType  domain.MediaType
	extensions []string
}

// allowList maps each accepted content type to its media type and the
// filename extensions that may carry it.
var allowList = map[string]allowedType{
	"image/png":       {domain.MediaImage, []string{".png"}},
	"image/jpeg":      {domain.MediaImage, []string{".jpg", ".jpeg"}},
	"image/heic":      {domain.MediaImage, []string{".heic", ".heif"}},
	"image/heif":      {domain.MediaImage, []string{".heif", ".heic"}},
	"video/mp4":       {domain.MediaVideo, []string{".mp4", ".m4v"}},
	"video/quicktime": {domain.MediaVideo, []string{".mov", ".qt"}},
}

// contentTypeAliases normalizes non-canonical types sent by some clients.
var contentTypeAliases = map[string]string{
	"image/jpg":           "image/jpeg",
	"image/pjpeg":         "image/jpeg",
	"image/x-png":         "image/png",
	"image/heic-sequence": "image/heic",
	"image/heif-sequence": "image/heif",
	"video/x-m4v":         "video/mp4",
}

// UnsupportedTypeError reports a content type outside the allow-list, or a
// filename whose extension contradicts the declared type.
type UnsupportedTypeError struct {
	ContentType string
	Filename    string
	Reason      string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported file %q (%s): %s", e.Filename, e.ContentType, e.Reason)
	}
	return fmt.Sprintf("unsupported file type %q for %q; allowed: %s",
		e.ContentType, e.Filename, strings.Join(AllowedContentTypes(), ", "))
}

// TooLargeError reports a file over the configured maximum.
type TooLargeError struct {
	Filename string
	Size     int64
	Max      int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file %q is %s, maximum is %s",
		e.Filename, util.FormatFileSize(e.Size), util.FormatFileSize(e.Max))
}

// EmptyFileError reports a zero-byte upload.
type EmptyFileError struct {
	Filename string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("file %q is empty", e.Filename)
}

// Validator applies the allow-list and size ceiling.
type Validator struct {
	maxBytes int64
}

// New creates a validator. A non-positive maxBytes selects DefaultMaxBytes.
func New(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{maxBytes: maxBytes}
}

// MaxBytes returns the configured ceiling.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Check validates a declared content type, filename and size and returns the
// resolved media type. It never reads file contents.
func (v *Validator) Check(contentType, filename string, size int64) (domain.MediaType, error) {
	ct := NormalizeContentType(contentType)
	allowed, ok := allowList[ct]
	if !ok {
		return "", &UnsupportedTypeError{ContentType: contentType, Filename: filename}
	}

	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && !slices.Contains(allowed.extensions, ext) {
		return "", &UnsupportedTypeError{
			ContentType: ct,
			Filename:    filename,
			Reason:      fmt.Sprintf("extension %s does not match declared type", ext),
		}
	}

	if size <= 0 {
		return "", &EmptyFileError{Filename: filename}
	}
	if size > v.maxBytes {
		return "", &TooLargeError{Filename: filename, Size: size, Max: v.maxBytes}
	}

	return allowed.mediaType, nil
}

// NormalizeContentType lowercases ct, drops parameters and resolves aliases.
func NormalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		ct = parsed
	}
	ct = strings.ToLower(ct)
	if alias, ok := contentTypeAliases[ct]; ok {
		return alias
	}
	return ct
}

// AllowedContentTypes lists the accepted content types in sorted order.
func AllowedContentTypes() []string {
	types := make([]string, 0, len(allowList))
	for ct := range allowList {
		types = append(types, ct)
	}
	slices.Sort(types)
	return types
}

// MediaTypeOf returns the media type for an allowed content type.
func MediaTypeOf(contentType string) (domain.MediaType, bool) {
	allowed, ok := allowList[NormalizeContentType(contentType)]
	return allowed.mediaType, ok
}
