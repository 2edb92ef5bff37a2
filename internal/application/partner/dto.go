package partner

import (
	"github.com/vde76ru/module-sub000/internal/domain/partner"
)

// CreateSupplierRequest describes a new supplier and its connector
type CreateSupplierRequest struct {
	Code          string                    `json:"code" binding:"required,max=50"`
	Name          string                    `json:"name" binding:"required,max=200"`
	ConnectorType string                    `json:"connector_type" binding:"required,max=50"`
	Settings      partner.ConnectorSettings `json:"settings"`
}

// CreateWarehouseRequest describes a new physical warehouse
type CreateWarehouseRequest struct {
	Code     string `json:"code" binding:"required,max=50"`
	Name     string `json:"name" binding:"required,max=200"`
	Priority int    `json:"priority"`
}

// SetBrandSourceRequest maps a brand to its master content supplier
type SetBrandSourceRequest struct {
	Brand      string `json:"brand" binding:"required,max=200"`
	SupplierID string `json:"supplier_id" binding:"required,uuid"`
}
