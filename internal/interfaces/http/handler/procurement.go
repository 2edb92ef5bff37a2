package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appprocurement "github.com/vde76ru/module-sub000/internal/application/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
)

// ProcurementHandler serves procurement runs and supplier purchase orders
type ProcurementHandler struct {
	BaseHandler
	service *appprocurement.Service
}

// NewProcurementHandler creates a procurement handler
func NewProcurementHandler(service *appprocurement.Service) *ProcurementHandler {
	return &ProcurementHandler{service: service}
}

// RegisterRoutes mounts the procurement routes
func (h *ProcurementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/channels/:id/procurement-runs", h.Trigger)
	rg.GET("/channels/:id/procurement-runs", h.Runs)

	r := rg.Group("/procurement-runs")
	r.GET("/:id", h.Run)
	r.GET("/:id/purchase-orders", h.RunPurchaseOrders)
	r.POST("/:id/confirm", h.ConfirmRun)
	r.POST("/:id/cancel", h.CancelRun)

	po := rg.Group("/purchase-orders")
	po.GET("/:id", h.PurchaseOrder)
	po.PUT("/:id/lines/:product_id", h.UpdateLine)
	po.DELETE("/:id/lines/:product_id", h.RemoveLine)
	po.POST("/:id/confirm", h.poStep(h.service.ConfirmPurchaseOrder))
	po.POST("/:id/send", h.poStep(h.service.SendPurchaseOrder))
	po.POST("/:id/refresh-status", h.poStep(h.service.RefreshPurchaseOrderStatus))
	po.POST("/:id/cancel", h.CancelPurchaseOrder)
}

// UpdateLineRequest sets the quantity of a purchase order line
type UpdateLineRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// Trigger runs procurement for a channel now and returns the finished run
func (h *ProcurementHandler) Trigger(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	run, err := h.service.Run(c.Request.Context(), tenantID, id, procurement.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRunResponse(run))
}

func (h *ProcurementHandler) Runs(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	runs, err := h.service.Runs(c.Request.Context(), tenantID, id, queryLimit(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(runs, toRunResponse))
}

func (h *ProcurementHandler) Run(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	run, err := h.service.GetRun(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRunResponse(run))
}

func (h *ProcurementHandler) RunPurchaseOrders(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	orders, err := h.service.PurchaseOrdersOfRun(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(orders, toPurchaseOrderResponse))
}

// ConfirmRun confirms and sends every draft order of a run
func (h *ProcurementHandler) ConfirmRun(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	result, err := h.service.ConfirmRun(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ProcurementHandler) CancelRun(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	result, err := h.service.CancelRun(c.Request.Context(), tenantID, id, req.reasonOr(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ProcurementHandler) PurchaseOrder(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	po, err := h.service.PurchaseOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPurchaseOrderResponse(po))
}

func (h *ProcurementHandler) UpdateLine(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	var req UpdateLineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	po, err := h.service.UpdateLineQuantity(c.Request.Context(), tenantID, id, productID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPurchaseOrderResponse(po))
}

// RemoveLine drops a line from a draft order and records overrides for its items
func (h *ProcurementHandler) RemoveLine(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	reason := c.DefaultQuery("reason", "removed from purchase order")
	po, err := h.service.RemoveLine(c.Request.Context(), tenantID, id, productID, reason, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPurchaseOrderResponse(po))
}

func (h *ProcurementHandler) CancelPurchaseOrder(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	po, err := h.service.CancelPurchaseOrder(c.Request.Context(), tenantID, id, req.reasonOr(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPurchaseOrderResponse(po))
}

type purchaseOrderStep func(ctx context.Context, tenantID, poID uuid.UUID) (*procurement.SupplierPurchaseOrder, error)

func (h *ProcurementHandler) poStep(step purchaseOrderStep) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, id, ok := h.tenantAndID(c)
		if !ok {
			return
		}
		po, err := step(c.Request.Context(), tenantID, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, toPurchaseOrderResponse(po))
	}
}
