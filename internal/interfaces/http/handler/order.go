package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appprocurement "github.com/vde76ru/module-sub000/internal/application/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
)

// OrderHandler serves customer orders and manual overrides
type OrderHandler struct {
	BaseHandler
	service *appprocurement.Service
}

// NewOrderHandler creates an order handler
func NewOrderHandler(service *appprocurement.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes mounts the order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/orders")
	g.POST("", h.Ingest)
	g.GET("/:id", h.Get)
	g.POST("/:id/reserve", h.transition(h.service.ReserveOrder))
	g.POST("/:id/confirm", h.transition(h.service.ConfirmOrder))
	g.POST("/:id/ship", h.transition(h.service.ShipOrder))
	g.POST("/:id/deliver", h.transition(h.service.DeliverOrder))
	g.POST("/:id/cancel", h.Cancel)

	o := rg.Group("/overrides")
	o.GET("", h.Overrides)
	o.POST("", h.CreateOverride)
	o.DELETE("/:id", h.DeleteOverride)
}

// IngestOrderBody is a marketplace order
type IngestOrderBody struct {
	ChannelID   uuid.UUID       `json:"channel_id" binding:"required"`
	ExternalRef string          `json:"external_ref" binding:"required,max=100"`
	Lines       []OrderLineBody `json:"lines" binding:"required,min=1,dive"`
}

// OrderLineBody is one line of an incoming order
type OrderLineBody struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ReasonRequest carries the reason of a cancellation or removal
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (r ReasonRequest) reasonOr(c *gin.Context) string {
	if r.Reason != "" {
		return r.Reason
	}
	return "cancelled by " + actor(c)
}

// CreateOverrideRequest excludes an order item from procurement
type CreateOverrideRequest struct {
	OrderItemID uuid.UUID `json:"order_item_id" binding:"required"`
	Reason      string    `json:"reason" binding:"required,max=500"`
}

// Ingest stores an order; repeating an external reference returns the stored order
func (h *OrderHandler) Ingest(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req IngestOrderBody
	if !h.bindJSON(c, &req) {
		return
	}
	lines := make([]procurement.OrderLineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = procurement.OrderLineInput{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	order, err := h.service.IngestOrder(c.Request.Context(), tenantID, appprocurement.IngestOrderRequest{
		ChannelID:   req.ChannelID,
		ExternalRef: req.ExternalRef,
		Lines:       lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toOrderResponse(order))
}

func (h *OrderHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(order))
}

type orderTransition func(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.CustomerOrder, error)

// transition adapts a lifecycle step without a body to a handler
func (h *OrderHandler) transition(step orderTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, id, ok := h.tenantAndID(c)
		if !ok {
			return
		}
		order, err := step(c.Request.Context(), tenantID, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, toOrderResponse(order))
	}
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	order, err := h.service.CancelOrder(c.Request.Context(), tenantID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(order))
}

func (h *OrderHandler) Overrides(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	list, err := h.service.Overrides(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(list, toOverrideResponse))
}

func (h *OrderHandler) CreateOverride(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req CreateOverrideRequest
	if !h.bindJSON(c, &req) {
		return
	}
	override, err := h.service.CreateOverride(c.Request.Context(), tenantID, req.OrderItemID, req.Reason, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toOverrideResponse(override))
}

func (h *OrderHandler) DeleteOverride(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteOverride(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
