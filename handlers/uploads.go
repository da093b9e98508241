package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/pkg/logger"
	"github.com/mealbox/mealbox/pkg/metrics"
)

// MaxImageBytes caps a single image upload.
const MaxImageBytes = 10 << 20

// ImageStore stores an image and returns the URL it is served from.
type ImageStore interface {
	UploadImage(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

type UploadHandler struct {
	store    ImageStore
	maxBytes int64
}

func NewUploadHandler(s ImageStore) *UploadHandler {
	return &UploadHandler{store: s, maxBytes: MaxImageBytes}
}

func (h *UploadHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/uploads/images", h.UploadImage)
}

// UploadImage accepts a multipart "file" field. The type is sniffed from the
// content, not taken from the client, and must be an image.
func (h *UploadHandler) UploadImage(c *gin.Context) {
	// leave room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.reject(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.reject(c, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	if fh.Size > h.maxBytes {
		h.reject(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.reject(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		h.reject(c, http.StatusBadRequest, "unreadable upload")
		return
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		h.reject(c, http.StatusUnsupportedMediaType, "only images are accepted, got "+mt.String())
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		h.reject(c, http.StatusBadRequest, "unreadable upload")
		return
	}

	url, err := h.store.UploadImage(c.Request.Context(), fh.Filename, f, fh.Size, mt.String())
	if err != nil {
		logger.Errorf("image upload failed: %v", err)
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	metrics.ImageUploads.WithLabelValues("stored").Inc()
	c.JSON(http.StatusCreated, gin.H{"url": url, "contentType": mt.String(), "size": fh.Size})
}

func (h *UploadHandler) reject(c *gin.Context, status int, msg string) {
	metrics.ImageUploads.WithLabelValues("rejected").Inc()
	c.JSON(status, gin.H{"error": msg})
}
