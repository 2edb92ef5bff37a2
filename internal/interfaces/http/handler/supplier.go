package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/application/catalogsync"
	apppartner "github.com/vde76ru/module-sub000/internal/application/partner"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
)

// SupplierHandler serves suppliers, their catalog syncs and brand mappings
type SupplierHandler struct {
	BaseHandler
	suppliers *apppartner.SupplierService
	sync      *catalogsync.Service
}

// NewSupplierHandler creates a supplier handler
func NewSupplierHandler(suppliers *apppartner.SupplierService, sync *catalogsync.Service) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers, sync: sync}
}

// RegisterRoutes mounts the supplier routes
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/suppliers")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/settings", h.UpdateSettings)
	g.POST("/:id/deactivate", h.Deactivate)
	g.POST("/:id/sync", h.Sync)
	g.GET("/:id/sync-runs", h.SyncRuns)
	g.POST("/:id/test-connection", h.TestConnection)

	rg.GET("/sync-runs/:id", h.SyncRun)
	rg.GET("/brand-sources", h.BrandSources)
	rg.PUT("/brand-sources", h.SetBrandSource)
}

// Create registers a supplier with its virtual warehouse
func (h *SupplierHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req apppartner.CreateSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	supplier, err := h.suppliers.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toSupplierResponse(supplier))
}

// List returns the tenant's suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	suppliers, err := h.suppliers.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(suppliers, toSupplierResponse))
}

// Get returns one supplier
func (h *SupplierHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	supplier, err := h.suppliers.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSupplierResponse(supplier))
}

// UpdateSettings replaces the connector settings
func (h *SupplierHandler) UpdateSettings(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	var settings partner.ConnectorSettings
	if !h.bindJSON(c, &settings) {
		return
	}
	supplier, err := h.suppliers.UpdateSettings(c.Request.Context(), tenantID, id, settings)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSupplierResponse(supplier))
}

// Deactivate stops syncing and ordering from a supplier
func (h *SupplierHandler) Deactivate(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	supplier, err := h.suppliers.Deactivate(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSupplierResponse(supplier))
}

// Sync runs a manual catalog sync and returns the finished run
func (h *SupplierHandler) Sync(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	run, err := h.sync.Sync(c.Request.Context(), tenantID, id, catalogsync.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncRunResponse(run))
}

// SyncRuns lists recent sync runs of a supplier
func (h *SupplierHandler) SyncRuns(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	runs, err := h.sync.Runs(c.Request.Context(), tenantID, id, queryLimit(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(runs, toSyncRunResponse))
}

// SyncRun returns one sync run
func (h *SupplierHandler) SyncRun(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	run, err := h.sync.Run(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncRunResponse(run))
}

// TestConnection checks that the supplier's connector can reach it
func (h *SupplierHandler) TestConnection(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	result, err := h.sync.TestConnection(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toConnectionTestResponse(result))
}

// BrandSources lists brand to master supplier mappings
func (h *SupplierHandler) BrandSources(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	sources, err := h.suppliers.BrandSources(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapSlice(sources, func(s *catalog.BrandContentSource) BrandSourceResponse {
		return BrandSourceResponse{Brand: s.Brand, SupplierID: s.SupplierID}
	}))
}

// SetBrandSource makes a supplier the content master for a brand
func (h *SupplierHandler) SetBrandSource(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req apppartner.SetBrandSourceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	source, err := h.suppliers.SetBrandSource(c.Request.Context(), tenantID, req.Brand, uuid.MustParse(req.SupplierID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, BrandSourceResponse{Brand: source.Brand, SupplierID: source.SupplierID})
}

// queryLimit reads ?limit= with a default of 20 and a cap of 200
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		return 20
	}
	return min(limit, 200)
}
