package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type ImageGenHandler struct {
	imageGenService services.ImageGenService
}

func NewImageGenHandler(imageGenService services.ImageGenService) *ImageGenHandler {
	return &ImageGenHandler{imageGenService: imageGenService}
}

type generatePageImageRequest struct {
	StoryPlotID int64 `json:"story_plot_id" binding:"required"`
	Page        int   `json:"page" binding:"required"`
}

func (gh *ImageGenHandler) GeneratePageImage(c *gin.Context) {
	var req generatePageImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	image, err := gh.imageGenService.GeneratePageImage(c.Request.Context(), req.StoryPlotID, req.Page)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"image": image})
}

type generateAllPagesRequest struct {
	StoryPlotID int64 `json:"story_plot_id" binding:"required"`
}

func (gh *ImageGenHandler) GenerateAllPageImages(c *gin.Context) {
	var req generateAllPagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	result, err := gh.imageGenService.GenerateAllPageImages(c.Request.Context(), req.StoryPlotID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"images": result.Images, "failures": result.Failures})
}

type generateFromReferenceRequest struct {
	StoryPlotID   int64   `json:"story_plot_id" binding:"required"`
	Page          int     `json:"page" binding:"required"`
	UploadImageID int64   `json:"upload_image_id" binding:"required"`
	Strength      float64 `json:"strength"`
}

func (gh *ImageGenHandler) GeneratePageImageFromReference(c *gin.Context) {
	var req generateFromReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	image, err := gh.imageGenService.GeneratePageImageFromReference(
		c.Request.Context(), req.StoryPlotID, req.Page, req.UploadImageID, req.Strength)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"image": image})
}

type generateAllPagesFromReferenceRequest struct {
	StoryPlotID   int64   `json:"story_plot_id" binding:"required"`
	UploadImageID int64   `json:"upload_image_id" binding:"required"`
	Strength      float64 `json:"strength"`
}

func (gh *ImageGenHandler) GenerateAllPageImagesFromReference(c *gin.Context) {
	var req generateAllPagesFromReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	result, err := gh.imageGenService.GenerateAllPageImagesFromReference(
		c.Request.Context(), req.StoryPlotID, req.UploadImageID, req.Strength)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"images": result.Images, "failures": result.Failures})
}

// GenerateBookImages renders every page of a finished book and walks its
// image-generation status.
func (gh *ImageGenHandler) GenerateBookImages(c *gin.Context) {
	bookID, err := pathID(c, "book_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	book, result, err := gh.imageGenService.GenerateBookImages(c.Request.Context(), bookID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"storybook": book,
		"images":    result.Images,
		"failures":  result.Failures,
	})
}
