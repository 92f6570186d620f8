package handlers

import (
	"errors"
	"net/http"

	"apigw-local/internal/repositories"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps repository errors onto status codes
func respondError(c *gin.Context, summary string, err error) {
	status := http.StatusInternalServerError
	switch {
	case repositories.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, repositories.ErrInvalidID), errors.Is(err, repositories.ErrValidation):
		status = http.StatusBadRequest
	}

	c.JSON(status, ErrorResponse{
		Error:   summary,
		Message: err.Error(),
	})
}
