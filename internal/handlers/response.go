package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrThemeNotFound):
		RespondError(c, http.StatusNotFound, "THEME_NOT_FOUND", err)
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "NOT_FOUND", err)
	case errors.Is(err, services.ErrUnknownField):
		RespondError(c, http.StatusBadRequest, "UNKNOWN_FIELD", err)
	case errors.Is(err, services.ErrValidation):
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
	case errors.Is(err, services.ErrInvalidState):
		RespondError(c, http.StatusConflict, "INVALID_STATE", err)
	case errors.Is(err, services.ErrUpstream):
		RespondError(c, http.StatusBadGateway, "UPSTREAM_PROVIDER_ERROR", err)
	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
	}
}
