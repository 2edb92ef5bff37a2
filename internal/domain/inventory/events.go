package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStockLink = "StockLink"

// Event type constants
const (
	EventTypeStockChanged = "StockChanged"
)

// StockChangedEvent is published after every ledger mutation of a link
type StockChangedEvent struct {
	shared.EventHeader
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reserved     decimal.Decimal `json:"reserved"`
	Available    decimal.Decimal `json:"available"`
	MovementType MovementType    `json:"movement_type"`
}

// NewStockChangedEvent creates a new StockChangedEvent
func NewStockChangedEvent(l *StockLink, movement MovementType) *StockChangedEvent {
	return &StockChangedEvent{
		EventHeader:  shared.NewEventHeader(EventTypeStockChanged, AggregateTypeStockLink, l.ID, l.TenantID),
		WarehouseID:  l.WarehouseID,
		ProductID:    l.ProductID,
		Quantity:     l.Quantity,
		Reserved:     l.Reserved,
		Available:    l.Available,
		MovementType: movement,
	}
}
