package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// StockLink holds the counters of one product in one warehouse.
// Available is a stored projection of Quantity - Reserved; it is recomputed
// by every mutation and never written on its own.
type StockLink struct {
	shared.TenantAggregateRoot
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_link_warehouse_product,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_link_warehouse_product,priority:2;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reserved    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Available   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	// UnitPrice is the acquisition cost of stock held here
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockLink) TableName() string {
	return "stock_links"
}

// NewStockLink creates an empty link
func NewStockLink(tenantID, warehouseID, productID uuid.UUID) (*StockLink, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("product ID cannot be empty")
	}
	return &StockLink{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		WarehouseID:         warehouseID,
		ProductID:           productID,
		Quantity:            decimal.Zero,
		Reserved:            decimal.Zero,
		Available:           decimal.Zero,
		UnitPrice:           decimal.Zero,
	}, nil
}

// Reserve moves quantity from available to reserved
func (l *StockLink) Reserve(quantity decimal.Decimal) error {
	if err := requirePositive(quantity); err != nil {
		return err
	}
	if quantity.GreaterThan(l.Available) {
		return NewInsufficientStockError(l.ProductID, &l.WarehouseID, quantity, l.Available)
	}
	l.Reserved = l.Reserved.Add(quantity)
	l.touch(MovementTypeReserve)
	return nil
}

// Release decrements reserved, floored at zero. It returns the amount
// actually released.
func (l *StockLink) Release(quantity decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(quantity); err != nil {
		return decimal.Zero, err
	}
	released := decimal.Min(quantity, l.Reserved)
	l.Reserved = l.Reserved.Sub(released)
	l.touch(MovementTypeRelease)
	return released, nil
}

// Consume takes stock out of the warehouse against a reservation. Reserved
// is reduced by at most what is reserved.
func (l *StockLink) Consume(quantity decimal.Decimal) error {
	if err := requirePositive(quantity); err != nil {
		return err
	}
	if quantity.GreaterThan(l.Quantity) {
		return NewInsufficientStockError(l.ProductID, &l.WarehouseID, quantity, l.Quantity)
	}
	l.Quantity = l.Quantity.Sub(quantity)
	l.Reserved = l.Reserved.Sub(decimal.Min(quantity, l.Reserved))
	l.touch(MovementTypeConsume)
	return nil
}

// SetQuantity overwrites the on-hand quantity, as sync does. Reserved is
// clamped to the new quantity. It returns the signed delta.
func (l *StockLink) SetQuantity(quantity decimal.Decimal, unitPrice *decimal.Decimal) (decimal.Decimal, error) {
	if quantity.IsNegative() {
		return decimal.Zero, shared.NewValidationError("stock quantity cannot be negative")
	}
	if unitPrice != nil {
		if unitPrice.IsNegative() {
			return decimal.Zero, shared.NewValidationError("unit price cannot be negative")
		}
		l.UnitPrice = *unitPrice
	}
	delta := quantity.Sub(l.Quantity)
	l.Quantity = quantity
	if l.Reserved.GreaterThan(l.Quantity) {
		l.Reserved = l.Quantity
	}
	l.touch(adjustmentType(delta))
	return delta, nil
}

// TransferOut removes unreserved stock for a move to another warehouse
func (l *StockLink) TransferOut(quantity decimal.Decimal) error {
	if err := requirePositive(quantity); err != nil {
		return err
	}
	if quantity.GreaterThan(l.Available) {
		return NewInsufficientStockError(l.ProductID, &l.WarehouseID, quantity, l.Available)
	}
	l.Quantity = l.Quantity.Sub(quantity)
	l.touch(MovementTypeTransfer)
	return nil
}

// TransferIn receives stock moved from another warehouse
func (l *StockLink) TransferIn(quantity decimal.Decimal) error {
	if err := requirePositive(quantity); err != nil {
		return err
	}
	l.Quantity = l.Quantity.Add(quantity)
	l.touch(MovementTypeTransfer)
	return nil
}

// CanFulfill reports whether quantity can be reserved here
func (l *StockLink) CanFulfill(quantity decimal.Decimal) bool {
	return l.Available.GreaterThanOrEqual(quantity)
}

// CheckInvariants verifies 0 <= reserved <= quantity and available = quantity - reserved
func (l *StockLink) CheckInvariants() error {
	switch {
	case l.Reserved.IsNegative():
		return shared.NewInvalidStateError("reserved is negative")
	case l.Reserved.GreaterThan(l.Quantity):
		return shared.NewInvalidStateError("reserved %s exceeds quantity %s", l.Reserved, l.Quantity)
	case !l.Available.Equal(l.Quantity.Sub(l.Reserved)):
		return shared.NewInvalidStateError("available %s does not match quantity - reserved", l.Available)
	}
	return nil
}

func (l *StockLink) touch(movement MovementType) {
	l.Available = l.Quantity.Sub(l.Reserved)
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	l.AddDomainEvent(NewStockChangedEvent(l, movement))
}

func requirePositive(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("quantity must be positive")
	}
	return nil
}

func adjustmentType(delta decimal.Decimal) MovementType {
	if delta.IsNegative() {
		return MovementTypeAdjustmentMinus
	}
	return MovementTypeAdjustmentPlus
}
