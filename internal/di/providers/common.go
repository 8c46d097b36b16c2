package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// cacheCleanupInterval is how often expired cache entries are purged.
	cacheCleanupInterval = 10 * time.Minute

	// readHeaderTimeout bounds slow-loris style header reads.
	readHeaderTimeout = 10 * time.Second
)

// BuildInfo carries values stamped at build time.
type BuildInfo struct {
	Version string
}
