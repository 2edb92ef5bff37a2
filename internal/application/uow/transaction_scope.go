// Package uow defines the unit of work shared by the application services.
package uow

import (
	"context"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// TransactionScope runs a function inside one database transaction.
// If the function returns an error, every write made through the
// repositories is rolled back and the error comes back wrapped in a
// shared.TransactionError.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error

	// Repositories returns repositories bound to the pool rather than a
	// transaction, for reads
	Repositories() Repositories
}

// Repositories gives access to every repository within one unit of work.
// All repositories returned share the same underlying connection.
type Repositories interface {
	Suppliers() partner.SupplierRepository
	Warehouses() partner.WarehouseRepository

	Products() catalog.ProductRepository
	Offers() catalog.SupplierOfferRepository
	ContentSources() catalog.BrandContentSourceRepository
	SyncRuns() catalog.SyncRunRepository

	StockLinks() inventory.StockLinkRepository
	Movements() inventory.StockMovementRepository

	Channels() marketplace.SalesChannelRepository
	PriceLinks() marketplace.PriceLinkRepository

	Orders() procurement.CustomerOrderRepository
	OrderItems() procurement.OrderItemRepository
	Overrides() procurement.ManualOverrideRepository
	PurchaseOrders() procurement.PurchaseOrderRepository
	Runs() procurement.RunRepository

	// Events records domain events to the outbox in the same transaction
	Events() shared.EventRecorder
}

// EventSource is an aggregate that buffers domain events
type EventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// RecordEvents moves the pending events of the given aggregates into the outbox
func RecordEvents(ctx context.Context, repos Repositories, sources ...EventSource) error {
	var events []shared.DomainEvent
	for _, src := range sources {
		events = append(events, src.GetDomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}
	if err := repos.Events().Record(ctx, events...); err != nil {
		return err
	}
	for _, src := range sources {
		src.ClearDomainEvents()
	}
	return nil
}
