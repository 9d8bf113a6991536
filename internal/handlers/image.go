package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type ImageHandler struct {
	uploadService services.UploadService
}

func NewImageHandler(uploadService services.UploadService) *ImageHandler {
	return &ImageHandler{uploadService: uploadService}
}

// UploadImage accepts a multipart photo upload ("file" field, "user_id" form
// value), analyzes it and returns the stored row.
func (ih *ImageHandler) UploadImage(c *gin.Context) {
	userID, fileName, contentType, content, err := readMultipartImage(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	image, err := ih.uploadService.UploadImage(c.Request.Context(), userID, fileName, contentType, content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"image": image})
}

// UploadReferenceImage stores a reference photo for image-to-image generation
// without running the vision analysis.
func (ih *ImageHandler) UploadReferenceImage(c *gin.Context) {
	userID, fileName, contentType, content, err := readMultipartImage(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	image, err := ih.uploadService.UploadReferenceImage(c.Request.Context(), userID, fileName, contentType, content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"image": image})
}

func (ih *ImageHandler) GetImage(c *gin.Context) {
	imageID, err := pathID(c, "image_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	image, err := ih.uploadService.GetImage(c.Request.Context(), imageID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"image": image})
}

func (ih *ImageHandler) GetSignedURL(c *gin.Context) {
	imageID, err := pathID(c, "image_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	url, err := ih.uploadService.GetSignedURL(c.Request.Context(), imageID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"signed_url": url})
}

func (ih *ImageHandler) ListImages(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Errorf("invalid user_id %q", c.Query("user_id")))
		return
	}
	images, err := ih.uploadService.ListImages(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"images": images})
}

func readMultipartImage(c *gin.Context) (int64, string, string, []byte, error) {
	userID, err := strconv.ParseInt(c.PostForm("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", "", nil, fmt.Errorf("invalid user_id %q", c.PostForm("user_id"))
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return 0, "", "", nil, fmt.Errorf("missing file field: %w", err)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return 0, "", "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return 0, "", "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return userID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), content, nil
}
