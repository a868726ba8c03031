package galleryclient

import (
	"context"
	"sync"
)

// DefaultPageSize matches the server's default listing page size.
const DefaultPageSize = 12

// Paginator drives incremental fetch-and-append of image pages. It is the
// state machine behind infinite scroll, independent of whatever viewport
// trigger calls LoadNext: a page counter starting at 1, the accumulated
// record list, a hasMore flag cleared by the first empty page, and a
// loading flag that suppresses overlapping fetches.
type Paginator struct {
	client   *Client
	pageSize int

	mu       sync.Mutex
	nextPage int
	hasMore  bool
	loading  bool
	closed   bool
	images   []Image
}

func NewPaginator(client *Client, pageSize int) *Paginator {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Paginator{
		client:   client,
		pageSize: pageSize,
		nextPage: 1,
		hasMore:  true,
	}
}

// LoadNext fetches the next page and folds it into the accumulated list:
// page 1 replaces the list, later pages append. An empty page clears
// hasMore without advancing. The call is a no-op while another load is in
// flight, after hasMore has cleared, or after Close. It reports whether
// new records were appended.
func (p *Paginator) LoadNext(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.closed || p.loading || !p.hasMore {
		p.mu.Unlock()
		return false, nil
	}
	p.loading = true
	page := p.nextPage
	p.mu.Unlock()

	images, err := p.client.ListImages(ctx, page, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	if err != nil {
		return false, err
	}
	if p.closed {
		// Torn down while the request was outstanding; drop the result.
		return false, nil
	}

	if len(images) == 0 {
		p.hasMore = false
		return false, nil
	}

	if page == 1 {
		p.images = append([]Image(nil), images...)
	} else {
		p.images = append(p.images, images...)
	}
	p.nextPage = page + 1
	return true, nil
}

// Remove drops a record from the accumulated list after its server-side
// deletion was confirmed. The page counter is untouched and no re-fetch
// happens.
func (p *Paginator) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, img := range p.images {
		if img.ID == id {
			p.images = append(p.images[:i], p.images[i+1:]...)
			return true
		}
	}
	return false
}

// Reset returns the paginator to its initial state; the next LoadNext
// fetches page 1 again and replaces the list. Used after uploads to
// refresh the listing.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextPage = 1
	p.hasMore = true
	p.images = nil
}

// Close marks the paginator as torn down; in-flight responses are
// discarded and further LoadNext calls are no-ops.
func (p *Paginator) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Images returns a snapshot of the accumulated records in order.
func (p *Paginator) Images() []Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Image(nil), p.images...)
}

// HasMore reports whether further pages may exist.
func (p *Paginator) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Loading reports whether a fetch is in flight.
func (p *Paginator) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}
