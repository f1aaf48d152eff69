package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/apperr"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// DeniedMessage is the single body used for authorization and not-found
// failures so callers cannot probe which messages exist.
const DeniedMessage = "Action not permitted"

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// ValidationFailed sends a 400 with the field-level messages listed verbatim.
func ValidationFailed(c *gin.Context, messages []string) {
	c.JSON(http.StatusBadRequest, ResponseData{
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Error:   "Validation failed",
		Errors:  messages,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// HandleError maps an error from the message core onto the response envelope.
// Storage and unexpected errors are logged and reported without detail.
func HandleError(c *gin.Context, log zerolog.Logger, err error) {
	if ve, ok := apperr.IsValidation(err); ok {
		ValidationFailed(c, ve.Errors)
		return
	}
	switch {
	case errors.Is(err, apperr.ErrAuthentication):
		Unauthorized(c, "Not authenticated")
	case apperr.IsDenied(err):
		Forbidden(c, DeniedMessage)
	default:
		var se *apperr.StorageError
		event := log.Error().Err(err).Str("path", c.FullPath())
		if errors.As(err, &se) {
			event = event.Str("op", se.Op)
		}
		event.Msg("request failed")
		_ = c.Error(err)
		InternalServerError(c, "Internal server error")
	}
}
