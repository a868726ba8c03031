package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pixelgrove/backend/internal/models"
	"github.com/pixelgrove/backend/internal/services"
)

// Gallery is the slice of GalleryService the handlers need.
type Gallery interface {
	List(ctx context.Context, page, limit int) ([]models.Image, error)
	Create(ctx context.Context, in services.UploadInput) (*models.Image, error)
	Delete(ctx context.Context, idHex string) error
}

type ImageHandler struct {
	gallery         Gallery
	defaultPageSize int
	maxUploadSize   int64
}

func NewImageHandler(gallery Gallery, defaultPageSize int, maxUploadSize int64) *ImageHandler {
	return &ImageHandler{gallery: gallery, defaultPageSize: defaultPageSize, maxUploadSize: maxUploadSize}
}

// ListImages handles paginated listing
// GET /images?page=1&limit=12
func (h *ImageHandler) ListImages(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = h.defaultPageSize
	}

	images, err := h.gallery.List(c.Request.Context(), page, limit)
	if err != nil {
		log.Printf("List images error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

// UploadImage handles single image upload
// POST /images
// Multipart form: file (required), title (optional), caption (optional)
func (h *ImageHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Reject oversized uploads before buffering the body.
	if header.Size > h.maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrImageTooLarge.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	title := c.PostForm("title")
	caption := c.PostForm("caption")

	image, err := h.gallery.Create(c.Request.Context(), services.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Title:       title,
		Caption:     caption,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoFile),
			errors.Is(err, services.ErrNotAnImage),
			errors.Is(err, services.ErrImageTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("Upload error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to upload image",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Image uploaded successfully",
		"imageId": image.ID.Hex(),
	})
}

// DeleteImage removes an image and its stored binary
// DELETE /images/:id
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	id := c.Param("id")

	err := h.gallery.Delete(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidImageID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID"})
		case errors.Is(err, services.ErrImageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		default:
			log.Printf("Delete error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}
