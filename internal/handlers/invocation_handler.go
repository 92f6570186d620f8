package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"apigw-local/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvocationReader reads the invocation journal
type InvocationReader interface {
	List(ctx context.Context, filter models.InvocationFilter) ([]*models.Invocation, int64, error)
	Get(ctx context.Context, id string) (*models.Invocation, error)
}

// InvocationHandler serves journaled invocations
type InvocationHandler struct {
	journal InvocationReader
}

// NewInvocationHandler creates a new invocation handler
func NewInvocationHandler(journal InvocationReader) *InvocationHandler {
	return &InvocationHandler{journal: journal}
}

// ListInvocations returns recent invocations, newest first
func (h *InvocationHandler) ListInvocations(c *gin.Context) {
	filter := models.InvocationFilter{
		Function: c.Query("function"),
		Outcome:  c.Query("outcome"),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid since parameter",
				Message: err.Error(),
			})
			return
		}
		filter.Since = t
	}

	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil && val > 0 {
			filter.Limit = val
		}
	}

	invocations, total, err := h.journal.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Failed to list invocations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invocations": invocations,
		"total":       total,
	})
}

// GetInvocation returns a single invocation
func (h *InvocationHandler) GetInvocation(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid invocation ID",
			Message: "ID must be a valid UUID",
		})
		return
	}

	invocation, err := h.journal.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get invocation", err)
		return
	}

	c.JSON(http.StatusOK, invocation)
}
