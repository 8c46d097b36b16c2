package validate

import (
	"bytes"
	"encoding/binary"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffLen is the number of leading bytes Detect looks at.
const SniffLen = 512

// ISO base media brands (the ftyp box) for the containers we accept.
var brandTypes = map[string]string{
	"heic": "image/heic",
	"heix": "image/heic",
	"hevc": "image/heic",
	"heim": "image/heic",
	"heis": "image/heic",
	"mif1": "image/heif",
	"msf1": "image/heif",
	"qt  ": "video/quicktime",
	"isom": "video/mp4",
	"iso2": "video/mp4",
	"mp41": "video/mp4",
	"mp42": "video/mp4",
	"avc1": "video/mp4",
	"M4V ": "video/mp4",
	"dash": "video/mp4",
}

var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".heic": "image/heic",
	".heif": "image/heif",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
}

// Detect guesses the content type of a file from its leading bytes, falling
// back to the filename extension. It is used when a client sends no type or
// application/octet-stream.
func Detect(head []byte, filename string) string {
	if ct := sniffISOBMFF(head); ct != "" {
		return ct
	}
	if len(head) > 0 {
		ct := NormalizeContentType(http.DetectContentType(head))
		if _, ok := allowList[ct]; ok {
			return ct
		}
		if ct != "application/octet-stream" && ct != "text/plain" {
			return ct
		}
	}
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// sniffISOBMFF reads the ftyp box: major brand first, then compatible brands.
func sniffISOBMFF(head []byte) string {
	if len(head) < 12 || !bytes.Equal(head[4:8], []byte("ftyp")) {
		return ""
	}
	boxSize := int(binary.BigEndian.Uint32(head[:4]))
	if boxSize < 12 || boxSize > len(head) {
		boxSize = len(head)
	}
	if ct, ok := brandTypes[string(head[8:12])]; ok {
		return ct
	}
	// Skip minor version (4 bytes) after the major brand.
	for i := 16; i+4 <= boxSize; i += 4 {
		if ct, ok := brandTypes[string(head[i:i+4])]; ok {
			return ct
		}
	}
	return ""
}
