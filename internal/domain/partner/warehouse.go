package partner

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

type WarehouseStatus string

const (
	WarehouseStatusActive   WarehouseStatus = "active"
	WarehouseStatusInactive WarehouseStatus = "inactive"
)

// WarehouseType tells own stock from a supplier's drop-ship pool
type WarehouseType string

const (
	WarehouseTypePhysical WarehouseType = "physical"
	WarehouseTypeVirtual  WarehouseType = "virtual"
)

// Warehouse holds stock links. Higher Priority is preferred when the ledger
// picks a warehouse to reserve from.
type Warehouse struct {
	shared.TenantAggregateRoot
	Code       string          `gorm:"type:varchar(50);not null"`
	Name       string          `gorm:"type:varchar(200);not null"`
	Type       WarehouseType   `gorm:"type:varchar(20);not null;default:'physical'"`
	Status     WarehouseStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Priority   int             `gorm:"not null;default:0"`
	SupplierID *uuid.UUID      `gorm:"type:uuid;index"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}

// NewPhysicalWarehouse creates an own-stock warehouse
func NewPhysicalWarehouse(tenantID uuid.UUID, code, name string, priority int) (*Warehouse, error) {
	return newWarehouse(tenantID, code, name, WarehouseTypePhysical, priority, nil)
}

// NewVirtualWarehouse creates the drop-ship warehouse for a supplier. It
// ranks below physical stock by default.
func NewVirtualWarehouse(tenantID uuid.UUID, supplier *Supplier) (*Warehouse, error) {
	supplierID := supplier.ID
	return newWarehouse(tenantID, "V-"+supplier.Code, supplier.Name+" (virtual)", WarehouseTypeVirtual, -1, &supplierID)
}

func newWarehouse(tenantID uuid.UUID, code, name string, typ WarehouseType, priority int, supplierID *uuid.UUID) (*Warehouse, error) {
	code = NormalizeCode(code)
	if code == "" || len(code) > maxCodeLen {
		return nil, shared.NewValidationError("warehouse code must be 1-%d characters", maxCodeLen)
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("warehouse name cannot be empty")
	}
	return &Warehouse{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		Type:                typ,
		Status:              WarehouseStatusActive,
		Priority:            priority,
		SupplierID:          supplierID,
	}, nil
}

// SetPriority changes the reservation preference
func (w *Warehouse) SetPriority(priority int) {
	w.Priority = priority
	w.IncrementVersion()
}

// Deactivate excludes the warehouse from reservation
func (w *Warehouse) Deactivate() {
	w.Status = WarehouseStatusInactive
	w.IncrementVersion()
}

func (w *Warehouse) IsActive() bool {
	return w.Status == WarehouseStatusActive
}

// IsVirtual reports whether the warehouse mirrors supplier stock
func (w *Warehouse) IsVirtual() bool {
	return w.Type == WarehouseTypeVirtual
}
