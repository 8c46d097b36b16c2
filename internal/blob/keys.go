package blob

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/util"
)

// thumbnailSuffix is appended to an object key to name its thumbnail.
const thumbnailSuffix = ".thumb.jpg"

// NewKey builds a storage key of the form YYYY/MM/<token>_<sanitized filename>.
func NewKey(now time.Time, token, filename string) string {
	now = now.UTC()
	return fmt.Sprintf("%04d/%02d/%s_%s", now.Year(), int(now.Month()), token, util.SanitizeFilename(filename))
}

// ThumbnailKey returns the key of the thumbnail stored next to key.
func ThumbnailKey(key string) string {
	return key + thumbnailSuffix
}

// validKey rejects keys that could escape the bucket root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "../") && key != ".."
}

// keyFromURL strips base (a public URL prefix) from rawURL.
func keyFromURL(base, rawURL string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if !validKey(key) {
		return "", false
	}
	return key, true
}

// joinURL appends key to base.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
