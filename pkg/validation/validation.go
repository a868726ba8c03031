package validation

import (
	"net/http"
	"strings"
)

// IsImageType reports whether a declared MIME type names an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// IsImageContent checks the declared type and, when the declaration is
// missing or generic, sniffs the payload itself.
func IsImageContent(contentType string, data []byte) bool {
	if IsImageType(contentType) {
		return true
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return IsImageType(http.DetectContentType(data))
	}
	return false
}

// WithinSizeLimit reports whether size fits under the ceiling.
func WithinSizeLimit(size, limit int64) bool {
	return size <= limit
}
