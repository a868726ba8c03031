package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageType(t *testing.T) {
	assert.True(t, IsImageType("image/png"))
	assert.True(t, IsImageType("image/jpeg"))
	assert.True(t, IsImageType(" IMAGE/WebP "))
	assert.False(t, IsImageType("text/plain"))
	assert.False(t, IsImageType("application/pdf"))
	assert.False(t, IsImageType(""))
}

func TestIsImageContent(t *testing.T) {
	// Declared image types pass without sniffing.
	assert.True(t, IsImageContent("image/png", []byte("whatever")))

	// Missing declaration falls back to content sniffing.
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	assert.True(t, IsImageContent("", pngHeader))
	assert.True(t, IsImageContent("application/octet-stream", pngHeader))
	assert.False(t, IsImageContent("", []byte("plain text content")))

	// A concrete non-image declaration is rejected outright.
	assert.False(t, IsImageContent("text/plain", pngHeader))
}

func TestWithinSizeLimit(t *testing.T) {
	limit := int64(5 * 1024 * 1024)
	assert.True(t, WithinSizeLimit(0, limit))
	assert.True(t, WithinSizeLimit(limit, limit))
	assert.False(t, WithinSizeLimit(limit+1, limit))
	assert.False(t, WithinSizeLimit(6*1024*1024, limit))
}
