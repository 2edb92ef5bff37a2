package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// PurchaseOrderStatus represents the status of a supplier purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusSent      PurchaseOrderStatus = "sent"
	PurchaseOrderStatusError     PurchaseOrderStatus = "error"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "cancelled"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusConfirmed, PurchaseOrderStatusSent,
		PurchaseOrderStatusError, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusDraft:
		return target == PurchaseOrderStatusConfirmed || target == PurchaseOrderStatusSent ||
			target == PurchaseOrderStatusError || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusConfirmed:
		return target == PurchaseOrderStatusSent || target == PurchaseOrderStatusError ||
			target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusSent, PurchaseOrderStatusError:
		return target == PurchaseOrderStatusCancelled
	}
	return false
}

// IsTerminal returns true when nothing is in flight for the order any more
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusError || s == PurchaseOrderStatusCancelled
}

// LineContribution is the share of one order item in a merged line
type LineContribution struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// PurchaseOrderLine is one product of a supplier purchase order. Demand
// for the same product is merged into a single line.
type PurchaseOrderLine struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null"`
	OfferID           uuid.UUID       `gorm:"type:uuid;not null"`
	ExternalProductID string          `gorm:"type:varchar(100);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Contributions     datatypes.JSONSlice[LineContribution]
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLine) TableName() string {
	return "supplier_purchase_order_lines"
}

// OrderItemIDs lists the items merged into the line
func (l *PurchaseOrderLine) OrderItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l.Contributions))
	for _, c := range l.Contributions {
		ids = append(ids, c.OrderItemID)
	}
	return ids
}

func (l *PurchaseOrderLine) recalculate() {
	l.Amount = l.Quantity.Mul(l.UnitCost)
	l.UpdatedAt = time.Now()
}

// Demand is the procurement need of one order item, resolved to a supplier offer
type Demand struct {
	OrderItemID       uuid.UUID
	ProductID         uuid.UUID
	OfferID           uuid.UUID
	ExternalProductID string
	Quantity          decimal.Decimal
	UnitCost          decimal.Decimal
}

// SupplierPurchaseOrder is the order placed with one supplier by a
// procurement run
type SupplierPurchaseOrder struct {
	shared.TenantAggregateRoot
	ChannelID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	SupplierID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	BatchID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	Status          PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	Currency        string              `gorm:"type:varchar(3);not null"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Lines           []PurchaseOrderLine `gorm:"foreignKey:OrderID;references:ID"`
	ExternalOrderID string              `gorm:"type:varchar(100);index"`
	ExternalStatus  string              `gorm:"type:varchar(50)"`
	LastError       string              `gorm:"type:text"`
	ConfirmedAt     *time.Time
	SentAt          *time.Time
	StatusCheckedAt *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SupplierPurchaseOrder) TableName() string {
	return "supplier_purchase_orders"
}

// NewSupplierPurchaseOrder creates an empty draft for a supplier group
func NewSupplierPurchaseOrder(tenantID, channelID, supplierID, batchID uuid.UUID, currency string) (*SupplierPurchaseOrder, error) {
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("supplier ID cannot be empty")
	}
	if batchID == uuid.Nil {
		return nil, shared.NewValidationError("batch ID cannot be empty")
	}
	cur, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, err
	}
	return &SupplierPurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ChannelID:           channelID,
		SupplierID:          supplierID,
		BatchID:             batchID,
		Status:              PurchaseOrderStatusDraft,
		Currency:            string(cur),
		TotalAmount:         decimal.Zero,
		Lines:               make([]PurchaseOrderLine, 0),
	}, nil
}

// AddDemand merges one item's demand into the line for its product
func (o *SupplierPurchaseOrder) AddDemand(d Demand) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewInvalidStateError("cannot add items to a %s purchase order", o.Status)
	}
	if d.ProductID == uuid.Nil || d.OrderItemID == uuid.Nil {
		return shared.NewValidationError("demand must reference a product and an order item")
	}
	if !d.Quantity.IsPositive() {
		return shared.NewValidationError("quantity must be positive")
	}
	if d.UnitCost.IsNegative() {
		return shared.NewValidationError("unit cost cannot be negative")
	}

	contribution := LineContribution{OrderItemID: d.OrderItemID, Quantity: d.Quantity}
	if line := o.line(d.ProductID); line != nil {
		for _, c := range line.Contributions {
			if c.OrderItemID == d.OrderItemID {
				return shared.NewValidationError("order item %s is already on the purchase order", d.OrderItemID)
			}
		}
		line.Quantity = line.Quantity.Add(d.Quantity)
		line.Contributions = append(line.Contributions, contribution)
		line.recalculate()
	} else {
		now := time.Now()
		line := PurchaseOrderLine{
			ID:                uuid.New(),
			OrderID:           o.ID,
			ProductID:         d.ProductID,
			OfferID:           d.OfferID,
			ExternalProductID: d.ExternalProductID,
			Quantity:          d.Quantity,
			UnitCost:          d.UnitCost,
			Contributions:     datatypes.JSONSlice[LineContribution]{contribution},
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		line.recalculate()
		o.Lines = append(o.Lines, line)
	}
	o.changed()
	return nil
}

// UpdateLineQuantity changes the ordered quantity of a draft line
func (o *SupplierPurchaseOrder) UpdateLineQuantity(productID uuid.UUID, quantity decimal.Decimal) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewInvalidStateError("cannot update lines of a %s purchase order", o.Status)
	}
	if !quantity.IsPositive() {
		return shared.NewValidationError("quantity must be positive")
	}
	line := o.line(productID)
	if line == nil {
		return shared.NewNotFoundError("purchase order line")
	}
	line.Quantity = quantity
	line.recalculate()
	o.changed()
	return nil
}

// RemoveLine drops the line of a product from a draft and returns it
func (o *SupplierPurchaseOrder) RemoveLine(productID uuid.UUID) (PurchaseOrderLine, error) {
	if o.Status != PurchaseOrderStatusDraft {
		return PurchaseOrderLine{}, shared.NewInvalidStateError("cannot remove lines of a %s purchase order", o.Status)
	}
	for idx, line := range o.Lines {
		if line.ProductID == productID {
			o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
			o.changed()
			return line, nil
		}
	}
	return PurchaseOrderLine{}, shared.NewNotFoundError("purchase order line")
}

// DetachItem takes one order item's contribution out of a draft. A line
// left without quantity or contributors is removed.
func (o *SupplierPurchaseOrder) DetachItem(itemID uuid.UUID) (bool, error) {
	if o.Status != PurchaseOrderStatusDraft {
		return false, shared.NewInvalidStateError("cannot change lines of a %s purchase order", o.Status)
	}
	for idx := range o.Lines {
		line := &o.Lines[idx]
		for cIdx, c := range line.Contributions {
			if c.OrderItemID != itemID {
				continue
			}
			line.Contributions = append(line.Contributions[:cIdx], line.Contributions[cIdx+1:]...)
			line.Quantity = line.Quantity.Sub(c.Quantity)
			if !line.Quantity.IsPositive() || len(line.Contributions) == 0 {
				o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
			} else {
				line.recalculate()
			}
			o.changed()
			return true, nil
		}
	}
	return false, nil
}

// OrderItemIDs lists every order item merged into the purchase order
func (o *SupplierPurchaseOrder) OrderItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for idx := range o.Lines {
		ids = append(ids, o.Lines[idx].OrderItemIDs()...)
	}
	return ids
}

// IsEmpty returns true when the order has no lines
func (o *SupplierPurchaseOrder) IsEmpty() bool {
	return len(o.Lines) == 0
}

// Confirm approves a draft for sending
func (o *SupplierPurchaseOrder) Confirm() error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusConfirmed) {
		return shared.NewInvalidStateError("cannot confirm purchase order in %s status", o.Status)
	}
	if o.IsEmpty() {
		return shared.NewInvalidStateError("cannot confirm purchase order without lines")
	}
	now := time.Now()
	o.Status = PurchaseOrderStatusConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	return nil
}

// MarkSent records the supplier's acceptance
func (o *SupplierPurchaseOrder) MarkSent(externalOrderID, externalStatus string) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusSent) {
		return shared.NewInvalidStateError("cannot send purchase order in %s status", o.Status)
	}
	if externalOrderID == "" {
		return shared.NewValidationError("external order ID cannot be empty")
	}
	now := time.Now()
	if o.ConfirmedAt == nil {
		o.ConfirmedAt = &now
	}
	o.Status = PurchaseOrderStatusSent
	o.ExternalOrderID = externalOrderID
	o.ExternalStatus = externalStatus
	o.LastError = ""
	o.SentAt = &now
	o.StatusCheckedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderSentEvent(o))
	return nil
}

// MarkError records a failed send
func (o *SupplierPurchaseOrder) MarkError(cause error) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusError) {
		return shared.NewInvalidStateError("cannot fail purchase order in %s status", o.Status)
	}
	o.Status = PurchaseOrderStatusError
	if cause != nil {
		o.LastError = cause.Error()
	}
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderFailedEvent(o))
	return nil
}

// Cancel cancels the purchase order locally
func (o *SupplierPurchaseOrder) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusCancelled) {
		return shared.NewInvalidStateError("cannot cancel purchase order in %s status", o.Status)
	}
	if reason == "" {
		return shared.NewValidationError("cancel reason is required")
	}
	wasSent := o.Status == PurchaseOrderStatusSent
	now := time.Now()
	o.Status = PurchaseOrderStatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o, wasSent))
	return nil
}

// UpdateExternalStatus records the status last reported by the supplier
func (o *SupplierPurchaseOrder) UpdateExternalStatus(status string) bool {
	now := time.Now()
	o.StatusCheckedAt = &now
	if status == o.ExternalStatus {
		return false
	}
	o.ExternalStatus = status
	o.UpdatedAt = now
	o.IncrementVersion()
	return true
}

// Line returns the line of a product
func (o *SupplierPurchaseOrder) Line(productID uuid.UUID) (*PurchaseOrderLine, error) {
	if line := o.line(productID); line != nil {
		return line, nil
	}
	return nil, shared.NewNotFoundError(fmt.Sprintf("purchase order line for product %s", productID))
}

func (o *SupplierPurchaseOrder) line(productID uuid.UUID) *PurchaseOrderLine {
	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID {
			return &o.Lines[idx]
		}
	}
	return nil
}

func (o *SupplierPurchaseOrder) changed() {
	o.recalculateTotals()
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// recalculateTotals recalculates the order total from its lines
func (o *SupplierPurchaseOrder) recalculateTotals() {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Amount)
	}
	o.TotalAmount = total
}
