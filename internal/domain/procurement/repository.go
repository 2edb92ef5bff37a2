package procurement

import (
	"context"

	"github.com/google/uuid"
)

// CustomerOrderRepository defines the interface for customer order persistence
type CustomerOrderRepository interface {
	// FindByIDForTenant finds an order with its items
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CustomerOrder, error)

	// FindByExternalRef finds an order by the marketplace reference on a channel
	FindByExternalRef(ctx context.Context, tenantID, channelID uuid.UUID, externalRef string) (*CustomerOrder, error)

	// FindByIDs finds orders with their items
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]CustomerOrder, error)

	// Save creates or updates an order and its items
	Save(ctx context.Context, order *CustomerOrder) error
}

// OrderItemRepository defines the item-level queries procurement needs
type OrderItemRepository interface {
	// FindProcurable lists pending and failed items of a channel that still
	// have quantity to procure and carry no manual override
	FindProcurable(ctx context.Context, tenantID, channelID uuid.UUID) ([]OrderItem, error)

	// FindByIDs finds items by ID
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]OrderItem, error)

	// FindByPurchaseOrder lists the items attached to a purchase order
	FindByPurchaseOrder(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]OrderItem, error)

	// Save updates one item
	Save(ctx context.Context, item *OrderItem) error
}

// ManualOverrideRepository defines the interface for override persistence
type ManualOverrideRepository interface {
	// FindByIDForTenant finds an override by ID
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ManualOverride, error)

	// FindByOrderItem finds the override of an item
	FindByOrderItem(ctx context.Context, tenantID, orderItemID uuid.UUID) (*ManualOverride, error)

	// FindAll lists the overrides of a tenant
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]ManualOverride, error)

	// Save creates or updates an override
	Save(ctx context.Context, override *ManualOverride) error

	// Delete removes an override
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// PurchaseOrderRepository defines the interface for supplier purchase order persistence
type PurchaseOrderRepository interface {
	// FindByIDForTenant finds an order with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SupplierPurchaseOrder, error)

	// FindByIDs finds orders with their lines
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]SupplierPurchaseOrder, error)

	// FindByBatch lists the orders created by one run
	FindByBatch(ctx context.Context, tenantID, batchID uuid.UUID) ([]SupplierPurchaseOrder, error)

	// FindByStatus lists orders in a status, or of all tenants when tenantID is uuid.Nil
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status PurchaseOrderStatus, limit int) ([]SupplierPurchaseOrder, error)

	// Save creates or updates an order and its lines. Lines no longer on
	// the order are deleted.
	Save(ctx context.Context, order *SupplierPurchaseOrder) error
}

// RunRepository defines the interface for procurement run persistence
type RunRepository interface {
	// FindByIDForTenant finds a run by ID
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Run, error)

	// FindByChannel lists the most recent runs of a channel
	FindByChannel(ctx context.Context, tenantID, channelID uuid.UUID, limit int) ([]Run, error)

	// Save creates or updates a run
	Save(ctx context.Context, run *Run) error
}
