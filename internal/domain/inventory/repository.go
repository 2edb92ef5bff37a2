package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockLinkRepository defines persistence for stock links. The ForUpdate
// finders take a row lock held until the surrounding transaction ends.
type StockLinkRepository interface {
	// FindByWarehouseProduct finds the link without locking
	FindByWarehouseProduct(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*StockLink, error)

	// FindByWarehouseProductForUpdate finds and locks the link
	FindByWarehouseProductForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*StockLink, error)

	// FindByProductForUpdate locks every link of a product in active warehouses
	FindByProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) ([]StockLink, error)

	// FindByProduct lists the links of a product without locking
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]StockLink, error)

	// Save creates or updates a link
	Save(ctx context.Context, link *StockLink) error
}

// StockMovementRepository defines persistence for the append-only ledger
type StockMovementRepository interface {
	// Create inserts a movement record
	Create(ctx context.Context, movement *StockMovement) error

	// FindByWarehouseProduct lists movements touching a warehouse and product, newest first
	FindByWarehouseProduct(ctx context.Context, tenantID, warehouseID, productID uuid.UUID, limit int) ([]StockMovement, error)

	// FindByOrderRef lists movements recorded against an order reference
	FindByOrderRef(ctx context.Context, tenantID uuid.UUID, orderRef string) ([]StockMovement, error)
}
