package responses

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StandardResponse is the envelope every JSON endpoint returns.
type StandardResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Success sends a 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, StandardResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Created sends a 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, StandardResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Error sends an error envelope with the given status.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, StandardResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

// BadRequest sends a 400 error envelope.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error envelope.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound sends a 404 error envelope.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Internal sends a 500 error envelope without exposing internals.
func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "internal server error")
}
