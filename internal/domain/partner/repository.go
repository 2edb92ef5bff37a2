package partner

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const maxCodeLen = 50

// NormalizeCode is the stored form of supplier and warehouse codes
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SupplierRepository finds suppliers. Lookups by id return
// shared.ErrNotFound for rows of another tenant.
type SupplierRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Supplier, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Supplier, error)
	// FindActive lists active suppliers of every tenant when tenantID is uuid.Nil
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]Supplier, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Supplier, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Save(ctx context.Context, supplier *Supplier) error
}

type WarehouseRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Warehouse, error)
	// FindActive orders by priority, highest first
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]Warehouse, error)
	FindVirtualBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (*Warehouse, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Warehouse, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
