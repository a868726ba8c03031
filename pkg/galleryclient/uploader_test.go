package galleryclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadRecord struct {
	Filename string
	Title    string
	Caption  string
}

// newUploadServer accepts multipart uploads and fails any file whose name
// starts with "fail".
func newUploadServer(t *testing.T) (*httptest.Server, *[]uploadRecord, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	received := []uploadRecord{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "No file provided"})
			return
		}
		defer file.Close()
		io.Copy(io.Discard, file)

		mu.Lock()
		received = append(received, uploadRecord{
			Filename: header.Filename,
			Title:    r.FormValue("title"),
			Caption:  r.FormValue("caption"),
		})
		mu.Unlock()

		if len(header.Filename) >= 4 && header.Filename[:4] == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "Failed to upload image",
				"details": "object store unavailable",
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"message": "Image uploaded successfully",
			"imageId": "65a000000000000000000001",
		})
	}))
	return srv, &received, &mu
}

func pngFile(name string, size int) File {
	return File{Name: name, ContentType: "image/png", Data: make([]byte, size)}
}

func TestAddRejectsWholeBatchOnNonImage(t *testing.T) {
	b := NewUploadBatch(New("http://unused"))

	err := b.Add(
		pngFile("ok.png", 10),
		File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")},
	)
	assert.ErrorIs(t, err, ErrBatchContainsNonImage)
	assert.Empty(t, b.Items(), "no partial add")
}

func TestAddRejectsWholeBatchOnOversizedFile(t *testing.T) {
	srv, received, mu := newUploadServer(t)
	defer srv.Close()

	b := NewUploadBatch(New(srv.URL))
	err := b.Add(
		pngFile("ok.png", 10),
		pngFile("huge.png", 6*1024*1024),
	)
	assert.ErrorIs(t, err, ErrBatchFileTooLarge)
	assert.Empty(t, b.Items())

	mu.Lock()
	assert.Empty(t, *received, "validation failure must not reach the network")
	mu.Unlock()
}

func TestSubmitEmptyQueue(t *testing.T) {
	b := NewUploadBatch(New("http://unused"))
	err := b.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingImages)
}

func TestSubmitSuccessClearsQueue(t *testing.T) {
	srv, received, mu := newUploadServer(t)
	defer srv.Close()

	b := NewUploadBatch(New(srv.URL))

	var progress []float64
	completed := false
	b.OnProgress = func(p float64) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	}
	b.OnComplete = func() { completed = true }

	require.NoError(t, b.Add(pngFile("a.png", 10), pngFile("b.png", 10)))
	items := b.Items()
	require.Len(t, items, 2)
	b.SetTitle(items[0].ID(), "First")
	b.SetCaption(items[0].ID(), "A caption")

	require.NoError(t, b.Submit(context.Background()))

	assert.Empty(t, b.Items())
	assert.True(t, b.Success())
	assert.False(t, b.Uploading())
	assert.NoError(t, b.Err())
	assert.InDelta(t, 100, b.Progress(), 0.001)
	assert.True(t, completed, "OnComplete must fire on full success")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, *received, 2)
	byName := map[string]uploadRecord{}
	for _, r := range *received {
		byName[r.Filename] = r
	}
	assert.Equal(t, "First", byName["a.png"].Title)
	assert.Equal(t, "A caption", byName["a.png"].Caption)
	assert.Equal(t, "b.png", byName["b.png"].Title, "empty title falls back to the filename")
	assert.Contains(t, progress, 100.0)
}

func TestSubmitPartialFailureKeepsFailedItems(t *testing.T) {
	// 3 items, one fails upstream: 2 succeed and leave the queue, the
	// failed one stays for retry, the error names the count.
	srv, received, mu := newUploadServer(t)
	defer srv.Close()

	b := NewUploadBatch(New(srv.URL))
	completed := false
	b.OnComplete = func() { completed = true }

	require.NoError(t, b.Add(
		pngFile("a.png", 10),
		pngFile("fail.png", 10),
		pngFile("c.png", 10),
	))

	err := b.Submit(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "failed to upload 1 image(s)")

	remaining := b.Items()
	require.Len(t, remaining, 1)
	assert.Equal(t, "fail.png", remaining[0].Filename)
	assert.Equal(t, StatusFailed, remaining[0].Status)
	assert.Error(t, remaining[0].Err)

	assert.False(t, b.Success())
	assert.False(t, b.Uploading())
	assert.False(t, completed, "OnComplete must not fire on partial failure")

	mu.Lock()
	assert.Len(t, *received, 3, "one failure must not abort the others")
	mu.Unlock()
}

func TestSubmitRetriesFailedItem(t *testing.T) {
	// The upstream rejects "flaky.png" once, then recovers. The failed
	// item survives the first submit and goes through on the second.
	var mu sync.Mutex
	failed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		failNow := header.Filename == "flaky.png" && !failed
		if failNow {
			failed = true
		}
		mu.Unlock()
		if failNow {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Failed to upload image"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"message": "Image uploaded successfully",
			"imageId": "65a000000000000000000002",
		})
	}))
	defer srv.Close()

	b := NewUploadBatch(New(srv.URL))
	require.NoError(t, b.Add(pngFile("a.png", 10), pngFile("flaky.png", 10)))
	require.Error(t, b.Submit(context.Background()))
	require.Len(t, b.Items(), 1)

	require.NoError(t, b.Submit(context.Background()))
	assert.Empty(t, b.Items())
	assert.True(t, b.Success())
}

func TestRemoveReleasesItem(t *testing.T) {
	b := NewUploadBatch(New("http://unused"))
	require.NoError(t, b.Add(pngFile("a.png", 10), pngFile("b.png", 10)))

	items := b.Items()
	require.Len(t, items, 2)

	assert.True(t, b.Remove(items[0].ID()))
	left := b.Items()
	require.Len(t, left, 1)
	assert.Equal(t, "b.png", left[0].Filename)

	assert.False(t, b.Remove(items[0].ID()))
}

func TestEditsAddressItemsById(t *testing.T) {
	b := NewUploadBatch(New("http://unused"))
	require.NoError(t, b.Add(pngFile("a.png", 10), pngFile("b.png", 10), pngFile("c.png", 10)))

	items := b.Items()
	targetID := items[2].ID()

	// Removing an earlier item shifts positions; the id still resolves.
	require.True(t, b.Remove(items[0].ID()))
	require.True(t, b.SetTitle(targetID, "Third"))

	for _, item := range b.Items() {
		if item.ID() == targetID {
			assert.Equal(t, "Third", item.Title)
			return
		}
	}
	t.Fatal("edited item not found")
}

func TestEditsDuringSubmitAreSafe(t *testing.T) {
	// Editing or removing items while a submit is in flight must not
	// touch the fields the upload workers read (caught by -race).
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		json.NewEncoder(w).Encode(map[string]string{"message": "ok", "imageId": "x"})
	}))
	defer srv.Close()

	b := NewUploadBatch(New(srv.URL))
	require.NoError(t, b.Add(pngFile("a.png", 10), pngFile("b.png", 10)))
	items := b.Items()
	require.Len(t, items, 2)

	errCh := make(chan error, 1)
	go func() { errCh <- b.Submit(context.Background()) }()

	for !b.Uploading() {
		time.Sleep(time.Millisecond)
	}
	b.SetTitle(items[0].ID(), "Edited mid-flight")
	b.SetCaption(items[0].ID(), "Also edited")
	b.Remove(items[1].ID())

	close(block)
	require.NoError(t, <-errCh)
	assert.True(t, b.Success())
	assert.False(t, b.Uploading())
}

func TestSubmitWhileUploadingRejected(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		json.NewEncoder(w).Encode(map[string]string{"message": "ok", "imageId": "x"})
	}))
	defer srv.Close()

	b := NewUploadBatch(New(srv.URL))
	require.NoError(t, b.Add(pngFile("a.png", 10)))

	errCh := make(chan error, 1)
	go func() { errCh <- b.Submit(context.Background()) }()

	// Wait for the first submit to take the uploading flag.
	for !b.Uploading() {
		time.Sleep(time.Millisecond)
	}
	assert.ErrorIs(t, b.Submit(context.Background()), ErrUploadInProgress)

	close(block)
	require.NoError(t, <-errCh)
	assert.False(t, b.Uploading(), "flag cleared on exit")
}
