package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type BooksHandler struct {
	bookQuery services.BookQueryService
}

func NewBooksHandler(bookQuery services.BookQueryService) *BooksHandler {
	return &BooksHandler{bookQuery: bookQuery}
}

// ListBooks pages through all finished books, newest first.
// Query params: cursor (last-seen id, 0 = start), limit (default 20).
func (bh *BooksHandler) ListBooks(c *gin.Context) {
	cursor, err := queryInt64(c, "cursor", 0)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	limit, err := queryInt64(c, "limit", 0)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	page, err := bh.bookQuery.ListBooks(c.Request.Context(), cursor, int(limit))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, page)
}

func (bh *BooksHandler) GetBookDetail(c *gin.Context) {
	bookID, err := pathID(c, "book_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	detail, err := bh.bookQuery.GetBookDetail(c.Request.Context(), bookID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"book": detail})
}

func (bh *BooksHandler) ListUserBooks(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	books, err := bh.bookQuery.ListUserBooks(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"books": books})
}

func (bh *BooksHandler) GetStats(c *gin.Context) {
	stats, err := bh.bookQuery.GetStats(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func queryInt64(c *gin.Context, name string, def int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
