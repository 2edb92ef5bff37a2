package handler

import (
	"github.com/gin-gonic/gin"

	apppricing "github.com/vde76ru/module-sub000/internal/application/pricing"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
)

// ChannelHandler serves sales channels and their prices
type ChannelHandler struct {
	BaseHandler
	channels *apppricing.ChannelService
	pricing  *apppricing.Service
}

// NewChannelHandler creates a channel handler
func NewChannelHandler(channels *apppricing.ChannelService, pricing *apppricing.Service) *ChannelHandler {
	return &ChannelHandler{channels: channels, pricing: pricing}
}

// RegisterRoutes mounts the channel and price routes
func (h *ChannelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/channels")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/pricing-rules", h.UpdateRules)
	g.PUT("/:id/schedule", h.SetSchedule)
	g.POST("/:id/recalculate", h.RecalculateChannel)

	p := rg.Group("/prices")
	p.POST("/recalculate", h.RecalculateTenant)
	p.GET("/products/:id", h.ProductPrices)
	p.POST("/products/:id/recalculate", h.RecalculateProduct)
}

// ScheduleRequest sets the procurement cadence of a channel
type ScheduleRequest struct {
	Cron        string `json:"cron" binding:"max=100"`
	AutoConfirm bool   `json:"auto_confirm"`
}

func (h *ChannelHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req apppricing.CreateChannelRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ch, err := h.channels.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toChannelResponse(ch))
}

func (h *ChannelHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	list, err := h.channels.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(list, toChannelResponse))
}

func (h *ChannelHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	ch, err := h.channels.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toChannelResponse(ch))
}

// UpdateRules replaces the pricing rules; prices follow asynchronously
func (h *ChannelHandler) UpdateRules(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var rules marketplace.PricingRules
	if !h.bindJSON(c, &rules) {
		return
	}
	ch, err := h.channels.UpdateRules(c.Request.Context(), tenantID, id, rules)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, toChannelResponse(ch))
}

func (h *ChannelHandler) SetSchedule(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ch, err := h.channels.SetSchedule(c.Request.Context(), tenantID, id, req.Cron, req.AutoConfirm)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toChannelResponse(ch))
}

func (h *ChannelHandler) RecalculateChannel(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	result, err := h.pricing.RecalculateChannel(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ChannelHandler) RecalculateTenant(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	result, err := h.pricing.RecalculateTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RecalculateProduct prices one product on every channel and returns the trails
func (h *ChannelHandler) RecalculateProduct(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	results, err := h.pricing.RecalculateProduct(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// ProductPrices returns the stored prices of a product
func (h *ChannelHandler) ProductPrices(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	links, err := h.pricing.Links(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(links, toPriceLinkResponse))
}
