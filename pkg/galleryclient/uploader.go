package galleryclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pixelgrove/backend/pkg/validation"
)

// MaxFileSize is the default per-file ceiling for queued uploads.
const MaxFileSize = 5 * 1024 * 1024

const maxConcurrentUploads = 3

var (
	// ErrNoPendingImages is returned by Submit on an empty queue.
	ErrNoPendingImages = errors.New("no images selected for upload")
	// ErrBatchContainsNonImage rejects a whole Add batch over one bad type.
	ErrBatchContainsNonImage = errors.New("only image files can be added")
	// ErrBatchFileTooLarge rejects a whole Add batch over one oversized file.
	ErrBatchFileTooLarge = errors.New("file exceeds the upload size limit")
	// ErrUploadInProgress rejects Submit while a batch is already running.
	ErrUploadInProgress = errors.New("an upload is already in progress")
)

// ItemStatus is the per-item upload outcome.
type ItemStatus int

const (
	StatusPending ItemStatus = iota
	StatusSucceeded
	StatusFailed
)

// File is one candidate for the upload queue.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// PendingImage is a queued file plus its user-edited metadata. The
// buffered bytes double as the local preview resource; release frees them.
type PendingImage struct {
	id          string
	Filename    string
	ContentType string
	Title       string
	Caption     string
	Status      ItemStatus
	Err         error

	data []byte
}

// ID is the stable identifier items are addressed by; it survives
// removals that shift list positions.
func (p *PendingImage) ID() string { return p.id }

func (p *PendingImage) release() { p.data = nil }

// UploadBatch manages the queue of pending uploads: validated adds,
// per-item edits, and a concurrent submit that waits for every item to
// settle before reporting the aggregate outcome.
type UploadBatch struct {
	client      *Client
	maxFileSize int64

	// OnProgress, when set, observes the aggregate progress percentage as
	// uploads complete. OnComplete fires after a fully successful batch,
	// typically to refresh the listing view.
	OnProgress func(percent float64)
	OnComplete func()

	mu        sync.Mutex
	items     []*PendingImage
	uploading bool
	progress  float64
	success   bool
	lastErr   error
}

func NewUploadBatch(client *Client) *UploadBatch {
	return &UploadBatch{client: client, maxFileSize: MaxFileSize}
}

// NewUploadBatchWithLimit overrides the per-file size ceiling.
func NewUploadBatchWithLimit(client *Client, maxFileSize int64) *UploadBatch {
	return &UploadBatch{client: client, maxFileSize: maxFileSize}
}

// Add validates and appends candidates. One invalid candidate rejects the
// entire batch: nothing is appended and no upload is attempted.
func (b *UploadBatch) Add(files ...File) error {
	for _, f := range files {
		if !validation.IsImageType(f.ContentType) {
			return fmt.Errorf("%w: %s", ErrBatchContainsNonImage, f.Name)
		}
		if !validation.WithinSizeLimit(int64(len(f.Data)), b.maxFileSize) {
			return fmt.Errorf("%w: %s", ErrBatchFileTooLarge, f.Name)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range files {
		b.items = append(b.items, &PendingImage{
			id:          uuid.NewString(),
			Filename:    f.Name,
			ContentType: f.ContentType,
			Status:      StatusPending,
			data:        f.Data,
		})
	}
	b.lastErr = nil
	return nil
}

// SetTitle edits one pending item's title, addressed by id.
func (b *UploadBatch) SetTitle(id, title string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if item := b.find(id); item != nil {
		item.Title = title
		return true
	}
	return false
}

// SetCaption edits one pending item's caption, addressed by id.
func (b *UploadBatch) SetCaption(id, caption string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if item := b.find(id); item != nil {
		item.Caption = caption
		return true
	}
	return false
}

// Remove releases the item's buffer and deletes it from the queue.
func (b *UploadBatch) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, item := range b.items {
		if item.id == id {
			item.release()
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

func (b *UploadBatch) find(id string) *PendingImage {
	for _, item := range b.items {
		if item.id == id {
			return item
		}
	}
	return nil
}

// Submit uploads every queued item concurrently and waits for all of them
// to settle; one item failing never aborts the others. On full success the
// queue is cleared and OnComplete fires. On partial failure the succeeded
// items are removed, the failed ones stay queued for retry, and the
// returned error names the failure count.
func (b *UploadBatch) Submit(ctx context.Context) error {
	b.mu.Lock()
	if b.uploading {
		b.mu.Unlock()
		return ErrUploadInProgress
	}
	if len(b.items) == 0 {
		b.mu.Unlock()
		return ErrNoPendingImages
	}
	b.uploading = true
	b.progress = 0
	b.success = false
	b.lastErr = nil
	items := append([]*PendingImage(nil), b.items...)
	for _, item := range items {
		item.Status = StatusPending
		item.Err = nil
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.uploading = false
		b.mu.Unlock()
	}()

	total := len(items)
	sem := make(chan struct{}, maxConcurrentUploads)
	done := make(chan struct{}, total)

	for _, item := range items {
		go func(it *PendingImage) {
			sem <- struct{}{}
			defer func() { <-sem; done <- struct{}{} }()

			// Snapshot the item under the lock: SetTitle, SetCaption and
			// Remove may mutate it while the request is in flight.
			b.mu.Lock()
			filename := it.Filename
			contentType := it.ContentType
			data := it.data
			title := it.Title
			if title == "" {
				title = filename
			}
			caption := it.Caption
			b.mu.Unlock()

			_, err := b.client.UploadImage(ctx, filename, contentType, data, title, caption)

			b.mu.Lock()
			var notify func(float64)
			var percent float64
			if err != nil {
				it.Status = StatusFailed
				it.Err = err
			} else {
				it.Status = StatusSucceeded
				succeeded := 0
				for _, s := range items {
					if s.Status == StatusSucceeded {
						succeeded++
					}
				}
				b.progress = float64(succeeded) / float64(total) * 100
				percent = b.progress
				notify = b.OnProgress
			}
			b.mu.Unlock()

			if notify != nil {
				notify(percent)
			}
		}(item)
	}

	// All-settle join point.
	for range items {
		<-done
	}

	b.mu.Lock()
	failed := 0
	for _, item := range items {
		if item.Status == StatusFailed {
			failed++
		}
	}

	if failed > 0 {
		// Keep failed items queued for retry, drop the succeeded ones.
		kept := b.items[:0]
		for _, item := range b.items {
			if item.Status == StatusSucceeded {
				item.release()
				continue
			}
			kept = append(kept, item)
		}
		b.items = kept
		b.lastErr = fmt.Errorf("failed to upload %d image(s)", failed)
		err := b.lastErr
		b.mu.Unlock()
		return err
	}

	for _, item := range b.items {
		item.release()
	}
	b.items = nil
	b.success = true
	onComplete := b.OnComplete
	b.mu.Unlock()

	if onComplete != nil {
		onComplete()
	}
	return nil
}

// Items returns a snapshot of the queue in order.
func (b *UploadBatch) Items() []PendingImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PendingImage, len(b.items))
	for i, item := range b.items {
		out[i] = *item
	}
	return out
}

// Uploading reports whether a submit is in flight.
func (b *UploadBatch) Uploading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploading
}

// Progress returns the aggregate progress percentage of the last submit.
func (b *UploadBatch) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

// Success reports whether the last submit completed without failures.
func (b *UploadBatch) Success() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.success
}

// Err returns the aggregate error of the last submit, if any.
func (b *UploadBatch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}
