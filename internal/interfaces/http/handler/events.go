// Package handler implements the event ingress endpoints.
package handler

import (
	"context"
	"net/http"

	"github.com/erp/replicator/internal/domain/replication"
	"github.com/erp/replicator/internal/interfaces/http/dto"
	"github.com/erp/replicator/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// EventDispatcher receives host events
type EventDispatcher interface {
	HandleItemEvent(ctx context.Context, e replication.ItemEvent) replication.HandlerResult
	HandleFormDataEvent(ctx context.Context, e replication.FormDataEvent) replication.HandlerResult
}

// EventHandler forwards host events posted by the UI bridge to the dispatcher
type EventHandler struct {
	dispatcher EventDispatcher
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(dispatcher EventDispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

// RegisterRoutes registers the event routes
func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/events")
	events.POST("/item", h.HandleItem)
	events.POST("/form-data", h.HandleFormData)
}

// HandleItem dispatches an item-interaction event.
// The dispatch runs synchronously; the reply is sent once it returns.
func (h *EventHandler) HandleItem(c *gin.Context) {
	var req dto.ItemEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	result := h.dispatcher.HandleItemEvent(c.Request.Context(), req.ToDomain())
	c.JSON(http.StatusOK, dto.EventResponse{BubbleEvent: result.BubbleEvent})
}

// HandleFormData dispatches a document-lifecycle event
func (h *EventHandler) HandleFormData(c *gin.Context) {
	var req dto.FormDataEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	result := h.dispatcher.HandleFormDataEvent(c.Request.Context(), req.ToDomain())
	c.JSON(http.StatusOK, dto.EventResponse{BubbleEvent: result.BubbleEvent})
}
