package upload

import "net/http"

// Per-category content-type allowlists. Challenge assets accept archives
// and common document/image formats; the image and document categories
// are intentionally narrower.
var allowedTypes = map[string][]string{
	"challenge": {
		"application/zip",
		"application/x-zip-compressed",
		"application/pdf",
		"text/plain",
		"application/octet-stream",
		"image/png",
		"image/jpeg",
		"image/gif",
	},
	"image": {
		"image/png",
		"image/jpeg",
		"image/gif",
		"image/webp",
	},
	"document": {
		"application/pdf",
		"text/plain",
		"text/markdown",
	},
}

// DetectContentType sniffs the content type from the file bytes. The
// declared Content-Type header is never trusted.
func DetectContentType(content []byte) string {
	mime := http.DetectContentType(content)
	// strip parameters such as "; charset=utf-8"
	for i := 0; i < len(mime); i++ {
		if mime[i] == ';' {
			return mime[:i]
		}
	}
	return mime
}

// KnownCategory reports whether category has an allowlist.
func KnownCategory(category string) bool {
	_, ok := allowedTypes[category]
	return ok
}

// TypeAllowed reports whether the sniffed content type is acceptable for
// the given category.
func TypeAllowed(mime, category string) bool {
	for _, allowed := range allowedTypes[category] {
		if mime == allowed {
			return true
		}
	}
	return false
}

// IsZip reports whether the sniffed type indicates a zip container.
func IsZip(mime string) bool {
	return mime == "application/zip" || mime == "application/x-zip-compressed"
}
