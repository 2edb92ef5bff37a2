package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// ReserveRequest asks the ledger to hold stock of a product
type ReserveRequest struct {
	TenantID             uuid.UUID
	ProductID            uuid.UUID
	Quantity             decimal.Decimal
	PreferredWarehouseID *uuid.UUID
	// AllowPartial enables the fallback for this call only
	AllowPartial bool
	// SkipVirtual leaves supplier warehouses out of the selection
	SkipVirtual bool
	Movement    inventory.MovementContext
}

func (r ReserveRequest) validate() error {
	if r.TenantID == uuid.Nil || r.ProductID == uuid.Nil {
		return shared.NewValidationError("tenant and product are required")
	}
	if !r.Quantity.IsPositive() {
		return shared.NewValidationError("quantity must be positive")
	}
	return nil
}

// ReserveResult is where a reservation landed
type ReserveResult struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Shortfall   decimal.Decimal `json:"shortfall"`
}

// ReleaseRequest gives reserved stock back
type ReleaseRequest struct {
	TenantID    uuid.UUID
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	Movement    inventory.MovementContext
}

// ConfirmRequest consumes reserved stock for an order
type ConfirmRequest struct {
	TenantID    uuid.UUID
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	OrderRef    string
	Movement    inventory.MovementContext
}

// SetStockRequest overwrites the on-hand quantity of a link
type SetStockRequest struct {
	TenantID    uuid.UUID
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	UnitPrice   *decimal.Decimal
	Movement    inventory.MovementContext
}

// MoveRequest transfers stock between warehouses
type MoveRequest struct {
	TenantID        uuid.UUID
	FromWarehouseID uuid.UUID
	ToWarehouseID   uuid.UUID
	ProductID       uuid.UUID
	Quantity        decimal.Decimal
	Movement        inventory.MovementContext
}
