package api

// API limits.
const (
	// multipartMemory is how much of a multipart body is held in memory
	// before parts spill to temporary files.
	multipartMemory = 32 << 20

	// maxFilesPerRequest bounds the number of files in one upload.
	maxFilesPerRequest = 10
)

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-cache"
)
