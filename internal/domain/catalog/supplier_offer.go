package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// SupplierOffer is one supplier's cost, stock and availability for a
// product. Offers missing from a sync are marked unavailable, not deleted.
type SupplierOffer struct {
	shared.TenantAggregateRoot
	ProductID   uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_offer_product_supplier,priority:1"`
	SupplierID  uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_offer_product_supplier,priority:2;uniqueIndex:idx_offer_supplier_external,priority:1"`
	ExternalID  string               `gorm:"type:varchar(200);not null;uniqueIndex:idx_offer_supplier_external,priority:2"`
	ExternalSKU string               `gorm:"type:varchar(100)"`
	Cost        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    valueobject.Currency `gorm:"type:varchar(3);not null"`
	MRC         *decimal.Decimal     `gorm:"type:decimal(18,4)"`
	EnforceMRC  bool                 `gorm:"not null;default:false"`
	Quantity    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Available   bool                 `gorm:"not null;default:true"`
	LastSeenAt  time.Time
}

// TableName returns the table name for GORM
func (SupplierOffer) TableName() string {
	return "supplier_offers"
}

// OfferQuote is the commercial data a sync delivers for one offer
type OfferQuote struct {
	ExternalSKU string
	Cost        decimal.Decimal
	Currency    valueobject.Currency
	MRC         *decimal.Decimal
	EnforceMRC  bool
	Quantity    decimal.Decimal
}

// NewSupplierOffer creates an available offer from a quote
func NewSupplierOffer(tenantID, productID, supplierID uuid.UUID, externalID string, q OfferQuote) (*SupplierOffer, error) {
	if externalID == "" {
		return nil, shared.NewValidationError("offer external id cannot be empty")
	}
	if q.Cost.IsNegative() {
		return nil, shared.NewValidationError("offer cost cannot be negative")
	}
	o := &SupplierOffer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		SupplierID:          supplierID,
		ExternalID:          externalID,
		Available:           true,
		LastSeenAt:          time.Now(),
	}
	o.setQuote(q)
	o.AddDomainEvent(NewSupplierOfferChangedEvent(o))
	return o, nil
}

// ApplyQuote refreshes the offer from a sync. It marks the offer seen and
// available, and reports whether any commercial field changed.
func (o *SupplierOffer) ApplyQuote(q OfferQuote) bool {
	o.LastSeenAt = time.Now()
	changed := !o.Available ||
		o.ExternalSKU != q.ExternalSKU ||
		!o.Cost.Equal(q.Cost) ||
		o.Currency != q.Currency ||
		!equalDecimalPtr(o.MRC, q.MRC) ||
		o.EnforceMRC != q.EnforceMRC ||
		!o.Quantity.Equal(q.Quantity)
	if !changed {
		return false
	}
	o.setQuote(q)
	o.Available = true
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewSupplierOfferChangedEvent(o))
	return true
}

func (o *SupplierOffer) setQuote(q OfferQuote) {
	o.ExternalSKU = q.ExternalSKU
	o.Cost = q.Cost
	o.Currency = q.Currency
	o.MRC = q.MRC
	o.EnforceMRC = q.EnforceMRC
	o.Quantity = q.Quantity
}

// MarkUnavailable retires the offer. Cost and history are kept.
func (o *SupplierOffer) MarkUnavailable() bool {
	if !o.Available && o.Quantity.IsZero() {
		return false
	}
	o.Available = false
	o.Quantity = decimal.Zero
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewSupplierOfferChangedEvent(o))
	return true
}

// Qualifies reports whether the offer can take part in pricing
func (o *SupplierOffer) Qualifies() bool {
	return o.Available && o.Cost.IsPositive()
}
