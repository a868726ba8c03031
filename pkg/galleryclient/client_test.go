package galleryclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteImageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/images/65a000000000000000000009", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Image not found"})
	}))
	defer srv.Close()

	err := New(srv.URL).DeleteImage(context.Background(), "65a000000000000000000009")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Image not found", apiErr.Message)
}

func TestAPIErrorPrefersDetails(t *testing.T) {
	err := &APIError{StatusCode: 500, Message: "Failed to upload image", Details: "object store unavailable"}
	assert.Equal(t, "object store unavailable", err.Error())

	err = &APIError{StatusCode: 500, Message: "Failed to upload image"}
	assert.Equal(t, "Failed to upload image", err.Error())

	err = &APIError{StatusCode: 502}
	assert.Equal(t, "request failed with status 502", err.Error())
}

func TestUploadImageDecodesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "sunset.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "Sunset", r.FormValue("title"))
		assert.Equal(t, "Golden hour", r.FormValue("caption"))

		json.NewEncoder(w).Encode(map[string]string{
			"message": "Image uploaded successfully",
			"imageId": "65a000000000000000000042",
		})
	}))
	defer srv.Close()

	id, err := New(srv.URL).UploadImage(context.Background(), "sunset.png", "image/png", []byte("data"), "Sunset", "Golden hour")
	require.NoError(t, err)
	assert.Equal(t, "65a000000000000000000042", id)
}
