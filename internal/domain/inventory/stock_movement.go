package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// MovementType classifies a ledger entry
type MovementType string

const (
	MovementTypeReserve         MovementType = "reserve"
	MovementTypeRelease         MovementType = "release"
	MovementTypeConsume         MovementType = "consume"
	MovementTypeAdjustmentPlus  MovementType = "adjustment_plus"
	MovementTypeAdjustmentMinus MovementType = "adjustment_minus"
	MovementTypeTransfer        MovementType = "transfer"
)

// StockMovement is an append-only ledger record. Rows are inserted once and
// never updated.
type StockMovement struct {
	shared.TenantEntity
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	FromWarehouseID *uuid.UUID      `gorm:"type:uuid;index"`
	ToWarehouseID   *uuid.UUID      `gorm:"type:uuid;index"`
	Type            MovementType    `gorm:"type:varchar(30);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason          string          `gorm:"type:varchar(500)"`
	OrderRef        string          `gorm:"type:varchar(100);index"`
	Actor           string          `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// MovementContext describes who caused a movement and why
type MovementContext struct {
	Actor    string
	Reason   string
	OrderRef string
}

// NewStockMovement creates a movement record. Quantity is stored unsigned;
// direction is given by Type and the from/to warehouses.
func NewStockMovement(tenantID, productID uuid.UUID, typ MovementType, from, to *uuid.UUID, quantity decimal.Decimal, mc MovementContext) *StockMovement {
	actor := mc.Actor
	if actor == "" {
		actor = "system"
	}
	return &StockMovement{
		TenantEntity:    shared.NewTenantEntity(tenantID),
		ProductID:       productID,
		FromWarehouseID: from,
		ToWarehouseID:   to,
		Type:            typ,
		Quantity:        quantity.Abs(),
		Reason:          mc.Reason,
		OrderRef:        mc.OrderRef,
		Actor:           actor,
	}
}
