package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// InsufficientStockError reports a reservation or move that exceeds what is available
type InsufficientStockError struct {
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

// NewInsufficientStockError builds an InsufficientStockError
func NewInsufficientStockError(productID uuid.UUID, warehouseID *uuid.UUID, requested, available decimal.Decimal) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Requested:   requested,
		Available:   available,
	}
}

func (e *InsufficientStockError) Error() string {
	if e.WarehouseID != nil {
		return fmt.Sprintf("insufficient stock for product %s in warehouse %s: requested %s, available %s",
			e.ProductID, e.WarehouseID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %s: requested %s, available %s",
		e.ProductID, e.Requested, e.Available)
}

// Shortfall is the quantity that could not be served
func (e *InsufficientStockError) Shortfall() decimal.Decimal {
	return decimal.Max(e.Requested.Sub(e.Available), decimal.Zero)
}

// ErrorCode returns INSUFFICIENT_STOCK
func (e *InsufficientStockError) ErrorCode() string {
	return shared.CodeInsufficientStock
}

// Is matches shared.ErrInsufficientStock
func (e *InsufficientStockError) Is(target error) bool {
	return shared.CodeOf(target) == shared.CodeInsufficientStock
}
