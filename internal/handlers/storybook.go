package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type StoryBookHandler struct {
	bookService services.StoryBookService
}

func NewStoryBookHandler(bookService services.StoryBookService) *StoryBookHandler {
	return &StoryBookHandler{bookService: bookService}
}

type confirmThemeRequest struct {
	StoryPlotID int64 `json:"story_plot_id" binding:"required"`
}

// ConfirmThemeAndCreate snapshots a finished plot into an immutable book.
func (bh *StoryBookHandler) ConfirmThemeAndCreate(c *gin.Context) {
	var req confirmThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	book, err := bh.bookService.ConfirmAndCreateBook(c.Request.Context(), req.StoryPlotID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"storybook": book})
}

func (bh *StoryBookHandler) GetBook(c *gin.Context) {
	bookID, err := pathID(c, "book_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	book, err := bh.bookService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"storybook": book})
}

type updateImageURLsRequest struct {
	StoryBookID int64          `json:"story_book_id" binding:"required"`
	ImageURLs   map[int]string `json:"image_urls" binding:"required"`
}

func (bh *StoryBookHandler) UpdateImageURLs(c *gin.Context) {
	var req updateImageURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	book, err := bh.bookService.UpdateImageURLs(c.Request.Context(), req.StoryBookID, req.ImageURLs)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"storybook": book})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (bh *StoryBookHandler) UpdateImageGenerationStatus(c *gin.Context) {
	bookID, err := pathID(c, "book_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	book, err := bh.bookService.SetImageGenerationStatus(c.Request.Context(), bookID, req.Status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"storybook": book})
}
