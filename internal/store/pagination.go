package store

// Page bounds for offset pagination.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampPage normalizes a limit/offset pair.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// HasNext reports whether rows remain after the current page.
func HasNext(total, limit, offset int) bool {
	return offset+limit < total
}
