package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pixelgrove/backend/internal/config"
	"github.com/pixelgrove/backend/internal/models"
	"github.com/pixelgrove/backend/pkg/validation"
)

var (
	// ErrImageNotFound is returned when no record exists for an id.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidImageID is returned for ids that are not valid ObjectID hex.
	ErrInvalidImageID = errors.New("invalid image id")
	// ErrNoFile is returned when Create receives an empty payload.
	ErrNoFile = errors.New("no file provided")
	// ErrNotAnImage is returned for payloads whose content is not an image.
	ErrNotAnImage = errors.New("file is not an image")
	// ErrImageTooLarge is returned for payloads over the configured ceiling.
	ErrImageTooLarge = errors.New("image exceeds maximum size")
)

// ImageStore is the metadata store the gallery persists records in.
type ImageStore interface {
	Insert(ctx context.Context, image *models.Image) (bson.ObjectID, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Image, error)
	List(ctx context.Context, skip, limit int64) ([]models.Image, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

// ObjectStorage is the binary store the gallery uploads images to.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// GalleryService composes the metadata store and the object store into the
// list/create/delete operations of the image collection. There is no
// cross-store transaction: Create uploads the binary first and inserts the
// record second, Delete removes the binary first and the record second.
// A crash or failure between the two steps leaves either an orphaned
// binary or a dangling record; both are accepted and logged, not repaired.
type GalleryService struct {
	store   ImageStore
	storage ObjectStorage
	cfg     *config.Config
}

func NewGalleryService(store ImageStore, storage ObjectStorage, cfg *config.Config) *GalleryService {
	return &GalleryService{store: store, storage: storage, cfg: cfg}
}

// UploadInput carries one validated image upload.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Title       string
	Caption     string
}

// List returns one page of images, newest first. Page and limit fall back
// to their defaults when below 1; limit is clamped to the configured
// maximum so a single request cannot drain the collection.
func (s *GalleryService) List(ctx context.Context, page, limit int) ([]models.Image, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	// A page far beyond the collection is just an empty page; guard the
	// skip multiplication against overflowing into a negative offset.
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return []models.Image{}, nil
	}

	skip := int64(page-1) * int64(limit)
	return s.store.List(ctx, skip, int64(limit))
}

// Create uploads the binary to the object store, then inserts the
// metadata record. Validation happens before either external call.
func (s *GalleryService) Create(ctx context.Context, in UploadInput) (*models.Image, error) {
	if len(in.Data) == 0 {
		return nil, ErrNoFile
	}
	if !validation.IsImageContent(in.ContentType, in.Data) {
		return nil, ErrNotAnImage
	}
	if int64(len(in.Data)) > s.cfg.UploadMaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(in.Data), s.cfg.UploadMaxImageSize)
	}

	key := fmt.Sprintf("%s/%s%s", s.cfg.UploadFolder, uuid.New().String(), filepath.Ext(in.Filename))

	url, err := s.storage.Upload(ctx, key, bytes.NewReader(in.Data), in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to object store: %w", err)
	}

	title := in.Title
	if title == "" {
		title = "Untitled"
	}

	image := &models.Image{
		URL:       url,
		PublicID:  key,
		Title:     title,
		Caption:   in.Caption,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	id, err := s.store.Insert(ctx, image)
	if err != nil {
		// The uploaded binary stays behind with no referencing record.
		return nil, fmt.Errorf("image stored but record not created (orphaned object %s): %w", key, err)
	}
	image.ID = id

	return image, nil
}

// Delete removes the backing binary and then the metadata record.
func (s *GalleryService) Delete(ctx context.Context, idHex string) error {
	id, err := bson.ObjectIDFromHex(idHex)
	if err != nil {
		return ErrInvalidImageID
	}

	image, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, image.PublicID); err != nil {
		// Abort before touching the record: it keeps pointing at the key.
		return fmt.Errorf("failed to delete stored object %s: %w", image.PublicID, err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		// Binary is gone, record survives as a dangling reference.
		return err
	}

	return nil
}
