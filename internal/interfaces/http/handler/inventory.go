package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
)

// InventoryHandler exposes the stock ledger
type InventoryHandler struct {
	BaseHandler
	ledger *appinventory.StockLedger
}

// NewInventoryHandler creates an inventory handler
func NewInventoryHandler(ledger *appinventory.StockLedger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// RegisterRoutes mounts the stock routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock")
	g.GET("/products/:product_id", h.ByProduct)
	g.GET("/warehouses/:warehouse_id/products/:product_id", h.Get)
	g.GET("/warehouses/:warehouse_id/products/:product_id/movements", h.Movements)
	g.POST("/reserve", h.Reserve)
	g.POST("/release", h.Release)
	g.POST("/confirm", h.Confirm)
	g.POST("/set", h.Set)
	g.POST("/move", h.Move)
}

// StockRowRequest addresses one (warehouse, product) link
type StockRowRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Reason      string          `json:"reason" binding:"max=500"`
	OrderRef    string          `json:"order_ref" binding:"max=100"`
}

func (r StockRowRequest) movement(c *gin.Context) inventory.MovementContext {
	return inventory.MovementContext{Actor: actor(c), Reason: r.Reason, OrderRef: r.OrderRef}
}

// ReserveStockRequest holds stock of a product wherever it is available
type ReserveStockRequest struct {
	ProductID            uuid.UUID       `json:"product_id" binding:"required"`
	Quantity             decimal.Decimal `json:"quantity" binding:"required"`
	PreferredWarehouseID *uuid.UUID      `json:"preferred_warehouse_id"`
	AllowPartial         bool            `json:"allow_partial"`
	OrderRef             string          `json:"order_ref" binding:"max=100"`
}

// SetStockBody overwrites the on-hand quantity of a link
type SetStockBody struct {
	StockRowRequest
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// MoveStockRequest transfers stock between two warehouses
type MoveStockRequest struct {
	FromWarehouseID uuid.UUID       `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   uuid.UUID       `json:"to_warehouse_id" binding:"required"`
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	Reason          string          `json:"reason" binding:"max=500"`
}

// ReleaseResponse reports how much reserved stock was given back
type ReleaseResponse struct {
	Released decimal.Decimal `json:"released"`
}

// SetStockResponse reports the quantity change of a set
type SetStockResponse struct {
	Delta decimal.Decimal `json:"delta"`
}

func (h *InventoryHandler) Reserve(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req ReserveStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Reserve(c.Request.Context(), appinventory.ReserveRequest{
		TenantID:             tenantID,
		ProductID:            req.ProductID,
		Quantity:             req.Quantity,
		PreferredWarehouseID: req.PreferredWarehouseID,
		AllowPartial:         req.AllowPartial,
		Movement:             inventory.MovementContext{Actor: actor(c), OrderRef: req.OrderRef},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *InventoryHandler) Release(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req StockRowRequest
	if !h.bindJSON(c, &req) {
		return
	}
	released, err := h.ledger.Release(c.Request.Context(), appinventory.ReleaseRequest{
		TenantID:    tenantID,
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Movement:    req.movement(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReleaseResponse{Released: released})
}

func (h *InventoryHandler) Confirm(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req StockRowRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.ledger.Confirm(c.Request.Context(), appinventory.ConfirmRequest{
		TenantID:    tenantID,
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		OrderRef:    req.OrderRef,
		Movement:    req.movement(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.stock(c, tenantID, req.WarehouseID, req.ProductID)
}

func (h *InventoryHandler) Set(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req SetStockBody
	if !h.bindJSON(c, &req) {
		return
	}
	delta, err := h.ledger.SetStock(c.Request.Context(), appinventory.SetStockRequest{
		TenantID:    tenantID,
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Movement:    req.movement(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SetStockResponse{Delta: delta})
}

func (h *InventoryHandler) Move(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req MoveStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	err := h.ledger.Move(c.Request.Context(), appinventory.MoveRequest{
		TenantID:        tenantID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		Movement:        inventory.MovementContext{Actor: actor(c), Reason: req.Reason},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.stock(c, tenantID, req.ToWarehouseID, req.ProductID)
}

// Get returns the stock of one product in one warehouse
func (h *InventoryHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	warehouseID, ok := h.pathUUID(c, "warehouse_id")
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	h.stock(c, tenantID, warehouseID, productID)
}

// ByProduct returns the stock of a product across warehouses
func (h *InventoryHandler) ByProduct(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	links, err := h.ledger.StockByProduct(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(links, toStockResponse))
}

// Movements returns the movement history of a stock link, newest first
func (h *InventoryHandler) Movements(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	warehouseID, ok := h.pathUUID(c, "warehouse_id")
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}
	history, err := h.ledger.History(c.Request.Context(), tenantID, warehouseID, productID, queryLimit(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(history, toMovementResponse))
}

func (h *InventoryHandler) stock(c *gin.Context, tenantID, warehouseID, productID uuid.UUID) {
	link, err := h.ledger.Stock(c.Request.Context(), tenantID, warehouseID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toStockResponse(link))
}
