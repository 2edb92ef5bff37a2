package handler

import (
	"github.com/gin-gonic/gin"

	apppartner "github.com/vde76ru/module-sub000/internal/application/partner"
)

// WarehouseHandler serves physical and virtual warehouses
type WarehouseHandler struct {
	BaseHandler
	warehouses *apppartner.WarehouseService
}

// NewWarehouseHandler creates a warehouse handler
func NewWarehouseHandler(warehouses *apppartner.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouses: warehouses}
}

// RegisterRoutes mounts the warehouse routes
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/warehouses")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/priority", h.SetPriority)
	g.POST("/:id/deactivate", h.Deactivate)
}

// SetPriorityRequest changes the reservation priority of a warehouse
type SetPriorityRequest struct {
	Priority *int `json:"priority" binding:"required"`
}

func (h *WarehouseHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req apppartner.CreateWarehouseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	wh, err := h.warehouses.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toWarehouseResponse(wh))
}

func (h *WarehouseHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	list, err := h.warehouses.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(list, toWarehouseResponse))
}

func (h *WarehouseHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	wh, err := h.warehouses.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWarehouseResponse(wh))
}

func (h *WarehouseHandler) SetPriority(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var req SetPriorityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	wh, err := h.warehouses.SetPriority(c.Request.Context(), tenantID, id, *req.Priority)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWarehouseResponse(wh))
}

func (h *WarehouseHandler) Deactivate(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	wh, err := h.warehouses.Deactivate(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toWarehouseResponse(wh))
}
