package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// ProcurementStatus tracks whether an order item still needs buying
type ProcurementStatus string

const (
	ProcurementStatusPending     ProcurementStatus = "pending"
	ProcurementStatusOrdered     ProcurementStatus = "ordered"
	ProcurementStatusFailed      ProcurementStatus = "failed"
	ProcurementStatusCancelled   ProcurementStatus = "cancelled"
	ProcurementStatusNotRequired ProcurementStatus = "not_required"
)

// FulfillmentStatus tracks an order item towards the customer
type FulfillmentStatus string

const (
	FulfillmentStatusNew       FulfillmentStatus = "new"
	FulfillmentStatusReserved  FulfillmentStatus = "reserved"
	FulfillmentStatusConfirmed FulfillmentStatus = "confirmed"
	FulfillmentStatusShipped   FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled FulfillmentStatus = "cancelled"
)

// IsTerminal returns true for delivered and cancelled
func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentStatusDelivered || s == FulfillmentStatusCancelled
}

// NeedsProcurement reports whether a run should pick the status up.
// Failed items are retried by the next pass.
func (s ProcurementStatus) NeedsProcurement() bool {
	return s == ProcurementStatusPending || s == ProcurementStatusFailed
}

// OrderStatus is the header status of a customer order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem is one product line of a customer order
type OrderItem struct {
	shared.TenantEntity
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChannelID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	// ReservedQuantity is held on ReservedWarehouseID by the stock ledger
	ReservedQuantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedWarehouseID *uuid.UUID      `gorm:"type:uuid"`
	// ProcureQuantity is the part that has to be bought from a supplier
	ProcureQuantity   decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	ProcurementStatus ProcurementStatus `gorm:"type:varchar(20);not null;index"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(20);not null"`
	PurchaseOrderID   *uuid.UUID        `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem creates an item that has to be procured in full until stock
// is reserved for it.
func NewOrderItem(order *CustomerOrder, productID uuid.UUID, quantity, unitPrice decimal.Decimal) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("product ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("unit price cannot be negative")
	}
	return &OrderItem{
		TenantEntity:      shared.NewTenantEntity(order.TenantID),
		OrderID:           order.ID,
		ChannelID:         order.ChannelID,
		ProductID:         productID,
		Quantity:          quantity,
		UnitPrice:         unitPrice,
		ReservedQuantity:  decimal.Zero,
		ProcureQuantity:   quantity,
		ProcurementStatus: ProcurementStatusPending,
		FulfillmentStatus: FulfillmentStatusNew,
	}, nil
}

// NeedsProcurement reports whether a procurement run should collect the item
func (i *OrderItem) NeedsProcurement() bool {
	return i.ProcurementStatus.NeedsProcurement() &&
		i.ProcureQuantity.IsPositive() &&
		!i.FulfillmentStatus.IsTerminal()
}

// ApplyReservation records what the ledger reserved. The shortfall becomes
// the quantity to procure. Items already on a purchase order are refused.
func (i *OrderItem) ApplyReservation(warehouseID *uuid.UUID, reserved decimal.Decimal) error {
	if i.FulfillmentStatus != FulfillmentStatusNew {
		return shared.NewInvalidStateError("cannot reserve item in %s status", i.FulfillmentStatus)
	}
	if i.ProcurementStatus == ProcurementStatusOrdered {
		return shared.NewInvalidStateError("cannot reserve item already on purchase order")
	}
	if reserved.IsNegative() || reserved.GreaterThan(i.Quantity) {
		return shared.NewValidationError("reserved quantity %s out of range", reserved)
	}
	i.ReservedQuantity = reserved
	if reserved.IsPositive() {
		i.ReservedWarehouseID = warehouseID
	}
	i.ProcureQuantity = i.Quantity.Sub(reserved)
	if i.ProcureQuantity.IsZero() {
		i.ProcurementStatus = ProcurementStatusNotRequired
	} else if i.ProcurementStatus == ProcurementStatusNotRequired {
		i.ProcurementStatus = ProcurementStatusPending
	}
	i.FulfillmentStatus = FulfillmentStatusReserved
	i.Touch()
	return nil
}

// ClearReservation forgets the reservation after the ledger released it
func (i *OrderItem) ClearReservation() {
	i.ReservedQuantity = decimal.Zero
	i.ReservedWarehouseID = nil
	i.Touch()
}

// ReleaseReservation returns a reserved or confirmed item to new. Demand
// that is not yet on a purchase order becomes procurable in full again.
func (i *OrderItem) ReleaseReservation() error {
	if i.FulfillmentStatus != FulfillmentStatusReserved && i.FulfillmentStatus != FulfillmentStatusConfirmed {
		return shared.NewInvalidStateError("cannot release item in %s status", i.FulfillmentStatus)
	}
	i.ClearReservation()
	i.FulfillmentStatus = FulfillmentStatusNew
	if i.ProcurementStatus != ProcurementStatusOrdered {
		i.ProcureQuantity = i.Quantity
		i.ProcurementStatus = ProcurementStatusPending
	}
	return nil
}

// MarkOrdered attaches the item to a purchase order
func (i *OrderItem) MarkOrdered(purchaseOrderID uuid.UUID) error {
	if !i.ProcurementStatus.NeedsProcurement() {
		return shared.NewInvalidStateError("cannot order item in %s procurement status", i.ProcurementStatus)
	}
	i.ProcurementStatus = ProcurementStatusOrdered
	i.PurchaseOrderID = &purchaseOrderID
	i.Touch()
	return nil
}

// MarkFailed reverts an ordered item after its purchase order failed
func (i *OrderItem) MarkFailed() {
	if i.ProcurementStatus != ProcurementStatusOrdered {
		return
	}
	i.ProcurementStatus = ProcurementStatusFailed
	i.PurchaseOrderID = nil
	i.Touch()
}

// RevertToPending detaches an ordered item from its purchase order
func (i *OrderItem) RevertToPending() {
	if i.ProcurementStatus != ProcurementStatusOrdered {
		return
	}
	i.ProcurementStatus = ProcurementStatusPending
	i.PurchaseOrderID = nil
	i.Touch()
}

// Confirm advances a reserved item
func (i *OrderItem) Confirm() error {
	if i.FulfillmentStatus != FulfillmentStatusReserved {
		return shared.NewInvalidStateError("cannot confirm item in %s status", i.FulfillmentStatus)
	}
	i.FulfillmentStatus = FulfillmentStatusConfirmed
	i.Touch()
	return nil
}

// Ship marks a confirmed item shipped. The caller consumes the reservation.
func (i *OrderItem) Ship() error {
	if i.FulfillmentStatus != FulfillmentStatusConfirmed {
		return shared.NewInvalidStateError("cannot ship item in %s status", i.FulfillmentStatus)
	}
	i.FulfillmentStatus = FulfillmentStatusShipped
	i.ReservedQuantity = decimal.Zero
	i.Touch()
	return nil
}

// Deliver marks a shipped item delivered
func (i *OrderItem) Deliver() error {
	if i.FulfillmentStatus != FulfillmentStatusShipped {
		return shared.NewInvalidStateError("cannot deliver item in %s status", i.FulfillmentStatus)
	}
	i.FulfillmentStatus = FulfillmentStatusDelivered
	i.Touch()
	return nil
}

// Cancel stops fulfillment and procurement. Shipped or delivered items
// cannot be cancelled.
func (i *OrderItem) Cancel() error {
	switch i.FulfillmentStatus {
	case FulfillmentStatusShipped, FulfillmentStatusDelivered:
		return shared.NewInvalidStateError("cannot cancel item in %s status", i.FulfillmentStatus)
	case FulfillmentStatusCancelled:
		return nil
	}
	i.FulfillmentStatus = FulfillmentStatusCancelled
	if i.ProcurementStatus != ProcurementStatusNotRequired {
		i.ProcurementStatus = ProcurementStatusCancelled
	}
	i.Touch()
	return nil
}

// CustomerOrder is a marketplace order received on a sales channel
type CustomerOrder struct {
	shared.TenantAggregateRoot
	ChannelID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_customer_order_channel_ref,priority:1"`
	ExternalRef string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_customer_order_channel_ref,priority:2"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;default:'open'"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
	CancelledAt *time.Time
}

// TableName returns the table name for GORM
func (CustomerOrder) TableName() string {
	return "customer_orders"
}

// OrderLineInput describes one item of an incoming order
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// NewCustomerOrder creates an open order with its items
func NewCustomerOrder(tenantID, channelID uuid.UUID, externalRef string, lines []OrderLineInput) (*CustomerOrder, error) {
	externalRef = strings.TrimSpace(externalRef)
	if channelID == uuid.Nil {
		return nil, shared.NewValidationError("channel ID cannot be empty")
	}
	if externalRef == "" {
		return nil, shared.NewValidationError("external order reference cannot be empty")
	}
	if len(externalRef) > 100 {
		return nil, shared.NewValidationError("external order reference cannot exceed 100 characters")
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("order must have at least one item")
	}

	order := &CustomerOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ChannelID:           channelID,
		ExternalRef:         externalRef,
		Status:              OrderStatusOpen,
		Items:               make([]OrderItem, 0, len(lines)),
	}
	for idx, line := range lines {
		item, err := NewOrderItem(order, line.ProductID, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, shared.NewValidationError("item %d: %s", idx+1, err.Error())
		}
		order.Items = append(order.Items, *item)
	}

	order.AddDomainEvent(NewCustomerOrderReceivedEvent(order))
	return order, nil
}

// Item returns the item with the given ID
func (o *CustomerOrder) Item(itemID uuid.UUID) (*OrderItem, error) {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx], nil
		}
	}
	return nil, shared.NewNotFoundError(fmt.Sprintf("order item %s", itemID))
}

// IsCancelled returns true once the order was cancelled
func (o *CustomerOrder) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// Cancel cancels every item. It fails when an item has already shipped.
func (o *CustomerOrder) Cancel() error {
	if o.Status != OrderStatusOpen {
		return shared.NewInvalidStateError("cannot cancel order in %s status", o.Status)
	}
	for idx := range o.Items {
		switch o.Items[idx].FulfillmentStatus {
		case FulfillmentStatusShipped, FulfillmentStatusDelivered:
			return shared.NewInvalidStateError("item %s has already shipped", o.Items[idx].ID)
		}
	}
	for idx := range o.Items {
		if err := o.Items[idx].Cancel(); err != nil {
			return err
		}
	}
	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewCustomerOrderCancelledEvent(o))
	return nil
}

// RefreshStatus completes the order once every item is terminal
func (o *CustomerOrder) RefreshStatus() {
	if o.Status != OrderStatusOpen {
		return
	}
	for idx := range o.Items {
		if !o.Items[idx].FulfillmentStatus.IsTerminal() {
			return
		}
	}
	o.Status = OrderStatusCompleted
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}
