package event

import (
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
)

// RegisterAllEvents registers every domain event that is written to the outbox
func RegisterAllEvents(s *EventSerializer) {
	Register[catalog.ProductCreatedEvent](s, catalog.EventTypeProductCreated)
	Register[catalog.ProductContentUpdatedEvent](s, catalog.EventTypeProductContentUpdated)
	Register[catalog.ProductStatusChangedEvent](s, catalog.EventTypeProductStatusChanged)
	Register[catalog.SupplierOfferChangedEvent](s, catalog.EventTypeSupplierOfferChanged)
	Register[catalog.SyncRunFinishedEvent](s, catalog.EventTypeSyncRunFinished)

	Register[inventory.StockChangedEvent](s, inventory.EventTypeStockChanged)

	Register[marketplace.PricingRulesChangedEvent](s, marketplace.EventTypePricingRulesChanged)
	Register[marketplace.PriceChangedEvent](s, marketplace.EventTypePriceChanged)

	Register[procurement.CustomerOrderReceivedEvent](s, procurement.EventTypeCustomerOrderReceived)
	Register[procurement.CustomerOrderCancelledEvent](s, procurement.EventTypeCustomerOrderCancelled)
	Register[procurement.PurchaseOrderSentEvent](s, procurement.EventTypePurchaseOrderSent)
	Register[procurement.PurchaseOrderFailedEvent](s, procurement.EventTypePurchaseOrderFailed)
	Register[procurement.PurchaseOrderCancelledEvent](s, procurement.EventTypePurchaseOrderCancelled)
	Register[procurement.ProcurementRunFinishedEvent](s, procurement.EventTypeProcurementRunFinished)
}
