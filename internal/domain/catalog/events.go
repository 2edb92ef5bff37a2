package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeProduct       = "Product"
	AggregateTypeSupplierOffer = "SupplierOffer"
	AggregateTypeSyncRun       = "SyncRun"
)

// Event type constants
const (
	EventTypeProductCreated        = "ProductCreated"
	EventTypeProductContentUpdated = "ProductContentUpdated"
	EventTypeProductStatusChanged  = "ProductStatusChanged"
	EventTypeSupplierOfferChanged  = "SupplierOfferChanged"
	EventTypeSyncRunFinished       = "SyncRunFinished"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.EventHeader
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand,omitempty"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		EventHeader: shared.NewEventHeader(EventTypeProductCreated, AggregateTypeProduct, p.ID, p.TenantID),
		ProductID:   p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Brand:       p.Brand,
	}
}

// ProductContentUpdatedEvent is published when sync overwrites descriptive data
type ProductContentUpdatedEvent struct {
	shared.EventHeader
	ProductID  uuid.UUID `json:"product_id"`
	SKU        string    `json:"sku"`
	SupplierID uuid.UUID `json:"supplier_id"`
}

// NewProductContentUpdatedEvent creates a new ProductContentUpdatedEvent
func NewProductContentUpdatedEvent(p *Product, supplierID uuid.UUID) *ProductContentUpdatedEvent {
	return &ProductContentUpdatedEvent{
		EventHeader: shared.NewEventHeader(EventTypeProductContentUpdated, AggregateTypeProduct, p.ID, p.TenantID),
		ProductID:   p.ID,
		SKU:         p.SKU,
		SupplierID:  supplierID,
	}
}

// ProductStatusChangedEvent is published when a product is (de)activated
type ProductStatusChangedEvent struct {
	shared.EventHeader
	ProductID uuid.UUID     `json:"product_id"`
	SKU       string        `json:"sku"`
	Status    ProductStatus `json:"status"`
}

// NewProductStatusChangedEvent creates a new ProductStatusChangedEvent
func NewProductStatusChangedEvent(p *Product) *ProductStatusChangedEvent {
	return &ProductStatusChangedEvent{
		EventHeader: shared.NewEventHeader(EventTypeProductStatusChanged, AggregateTypeProduct, p.ID, p.TenantID),
		ProductID:   p.ID,
		SKU:         p.SKU,
		Status:      p.Status,
	}
}

// SupplierOfferChangedEvent is published when an offer's cost, stock or
// availability changes. Pricing recalculates the product on receipt.
type SupplierOfferChangedEvent struct {
	shared.EventHeader
	OfferID    uuid.UUID       `json:"offer_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	SupplierID uuid.UUID       `json:"supplier_id"`
	Cost       decimal.Decimal `json:"cost"`
	Currency   string          `json:"currency"`
	Quantity   decimal.Decimal `json:"quantity"`
	Available  bool            `json:"available"`
}

// NewSupplierOfferChangedEvent creates a new SupplierOfferChangedEvent
func NewSupplierOfferChangedEvent(o *SupplierOffer) *SupplierOfferChangedEvent {
	return &SupplierOfferChangedEvent{
		EventHeader: shared.NewEventHeader(EventTypeSupplierOfferChanged, AggregateTypeSupplierOffer, o.ID, o.TenantID),
		OfferID:     o.ID,
		ProductID:   o.ProductID,
		SupplierID:  o.SupplierID,
		Cost:        o.Cost,
		Currency:    string(o.Currency),
		Quantity:    o.Quantity,
		Available:   o.Available,
	}
}

// SyncRunFinishedEvent is published when a catalog sync completes or fails
type SyncRunFinishedEvent struct {
	shared.EventHeader
	RunID      uuid.UUID     `json:"run_id"`
	SupplierID uuid.UUID     `json:"supplier_id"`
	Status     SyncRunStatus `json:"status"`
	Counters   SyncCounters  `json:"counters"`
}

// NewSyncRunFinishedEvent creates a new SyncRunFinishedEvent
func NewSyncRunFinishedEvent(r *SyncRun) *SyncRunFinishedEvent {
	return &SyncRunFinishedEvent{
		EventHeader: shared.NewEventHeader(EventTypeSyncRunFinished, AggregateTypeSyncRun, r.ID, r.TenantID),
		RunID:       r.ID,
		SupplierID:  r.SupplierID,
		Status:      r.Status,
		Counters:    r.SyncCounters,
	}
}
