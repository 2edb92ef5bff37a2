package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vde76ru/module-sub000/internal/application/event"
)

// OutboxHandler exposes dead letters of the event outbox for operators
type OutboxHandler struct {
	BaseHandler
	service *event.OutboxService
}

// NewOutboxHandler creates an outbox handler
func NewOutboxHandler(service *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{service: service}
}

// RegisterRoutes mounts the outbox routes under /admin
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/admin/outbox")
	g.GET("/stats", h.Stats)
	g.GET("/dead", h.DeadLetters)
	g.POST("/dead/retry", h.RetryAll)
	g.GET("/:id", h.Entry)
	g.POST("/:id/retry", h.Retry)
}

// RetryAllResponse reports how many entries were queued again
type RetryAllResponse struct {
	Retried int64 `json:"retried"`
}

func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	result, err := h.service.DeadLetters(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *OutboxHandler) Entry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.Entry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.service.RetryDead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

func (h *OutboxHandler) RetryAll(c *gin.Context) {
	n, err := h.service.RetryAllDead(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Retried: n})
}

func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
