package util

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	reservedFilenameRe = regexp.MustCompile(`[<>:"/\\|?*]`)
	unsafeFilenameRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s.-]`)
	filenameSpaceRe    = regexp.MustCompile(`\s+`)
)

const maxFilenameLength = 255

// SanitizeFilename makes a user-supplied filename safe to embed in a storage key.
// Reserved characters become underscores, other symbols are dropped, whitespace
// becomes a single underscore, and the name is capped at 255 bytes with its
// extension preserved. Empty results fall back to "unnamed_file".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = reservedFilenameRe.ReplaceAllString(name, "_")
	name = unsafeFilenameRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = filenameSpaceRe.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxFilenameLength-len(ext)], "") + ext
	}

	if name == "" || name == "." {
		return "unnamed_file"
	}
	return name
}

// ReplaceExt swaps the extension of name, e.g. ("lap.heic", ".jpg") → "lap.jpg".
func ReplaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

// FormatFileSize renders a byte count for humans ("0 B", "512.0 KB", "3.2 MB", "1.1 GB").
func FormatFileSize(n int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case n <= 0:
		return "0 B"
	case n < mb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	case n < gb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/gb)
	}
}
