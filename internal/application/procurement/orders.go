package procurement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// IngestOrderRequest is a marketplace order arriving on a channel
type IngestOrderRequest struct {
	ChannelID   uuid.UUID
	ExternalRef string
	Lines       []procurement.OrderLineInput
}

// IngestOrder stores a customer order. Ingesting the same external
// reference twice returns the stored order.
func (s *Service) IngestOrder(ctx context.Context, tenantID uuid.UUID, req IngestOrderRequest) (*procurement.CustomerOrder, error) {
	repos := s.scope.Repositories()
	channel, err := repos.Channels().FindByIDForTenant(ctx, tenantID, req.ChannelID)
	if err != nil {
		return nil, err
	}
	existing, err := repos.Orders().FindByExternalRef(ctx, tenantID, channel.ID, req.ExternalRef)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	order, err := procurement.NewCustomerOrder(tenantID, channel.ID, req.ExternalRef, req.Lines)
	if err != nil {
		return nil, err
	}
	productIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := repos.Products().FindByIDs(ctx, tenantID, productIDs)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}
	for _, id := range productIDs {
		if !known[id] {
			return nil, shared.NewValidationError("unknown product %s", id)
		}
	}

	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if err := repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder reads a customer order with its items
func (s *Service) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.CustomerOrder, error) {
	return s.scope.Repositories().Orders().FindByIDForTenant(ctx, tenantID, orderID)
}

// ReserveOrder reserves stock for every new item. Each item is served by a
// single warehouse; whatever cannot be reserved becomes the quantity to
// procure. Items already on a purchase order are left alone.
func (s *Service) ReserveOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.CustomerOrder, error) {
	return s.mutateOrder(ctx, tenantID, orderID, func(repos uow.Repositories, order *procurement.CustomerOrder) error {
		channel, err := repos.Channels().FindByIDForTenant(ctx, tenantID, order.ChannelID)
		if err != nil {
			return err
		}
		for i := range order.Items {
			item := &order.Items[i]
			if item.FulfillmentStatus != procurement.FulfillmentStatusNew ||
				item.ProcurementStatus == procurement.ProcurementStatusOrdered {
				continue
			}
			if err := s.reserveItem(ctx, repos, order, item, channel.PreferredWarehouseID); err != nil {
				return err
			}
		}
		return nil
	})
}

// reserveItem holds own stock for one new item. Supplier warehouses are
// skipped: their stock still has to be bought.
func (s *Service) reserveItem(ctx context.Context, repos uow.Repositories, order *procurement.CustomerOrder,
	item *procurement.OrderItem, preferred *uuid.UUID) error {
	res, err := s.ledger.ReserveTx(ctx, repos, appinventory.ReserveRequest{
		TenantID:             order.TenantID,
		ProductID:            item.ProductID,
		Quantity:             item.Quantity,
		PreferredWarehouseID: preferred,
		SkipVirtual:          true,
		Movement:             inventory.MovementContext{OrderRef: order.ExternalRef, Actor: "procurement"},
	})
	if errors.Is(err, shared.ErrInsufficientStock) {
		return item.ApplyReservation(nil, decimal.Zero)
	}
	if err != nil {
		return err
	}
	warehouseID := res.WarehouseID
	return item.ApplyReservation(&warehouseID, res.Quantity)
}

// ConfirmOrder advances the reserved items of an order
func (s *Service) ConfirmOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.CustomerOrder, error) {
	return s.mutateOrder(ctx, tenantID, orderID, func(_ uow.Repositories, order *procurement.CustomerOrder) error {
		confirmed := 0
		for i := range order.Items {
			if order.Items[i].FulfillmentStatus != procurement.FulfillmentStatusReserved {
				continue
			}
			if err := order.Items[i].Confirm(); err != nil {
				return err
			}
			confirmed++
		}
		if confirmed == 0 {
			return shared.NewInvalidStateError("order has no reserved items")
		}
		return nil
	})
}

// ShipOrder ships the confirmed items, consuming their reserved stock
func (s *Service) ShipOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.CustomerOrder, error) {
	return s.mutateOrder(ctx, tenantID, orderID, func(repos uow.Repositories, order *procurement.CustomerOrder) error {
		shipped := 0
		for i := range order.Items {
			item := &order.Items[i]
			if item.FulfillmentStatus != procurement.FulfillmentStatusConfirmed {
				continue
			}
			if item.ReservedQuantity.IsPositive() && item.ReservedWarehouseID != nil {
				err := s.ledger.ConfirmTx(ctx, repos, appinventory.ConfirmRequest{
					TenantID:    tenantID,
					WarehouseID: *item.ReservedWarehouseID,
					ProductID:   item.ProductID,
					Quantity:    item.ReservedQuantity,
					OrderRef:    order.ExternalRef,
					Movement:    inventory.MovementContext{Actor: "procurement"},
				})
				if err != nil {
					return err
				}
			}
			if err := item.Ship(); err != nil {
				return err
			}
			shipped++
		}
		if shipped == 0 {
			return shared.NewInvalidStateError("order has no confirmed items")
		}
		return nil
	})
}

// DeliverOrder marks the shipped items delivered
func (s *Service) DeliverOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*procurement.CustomerOrder, error) {
	return s.mutateOrder(ctx, tenantID, orderID, func(_ uow.Repositories, order *procurement.CustomerOrder) error {
		delivered := 0
		for i := range order.Items {
			if order.Items[i].FulfillmentStatus != procurement.FulfillmentStatusShipped {
				continue
			}
			if err := order.Items[i].Deliver(); err != nil {
				return err
			}
			delivered++
		}
		if delivered == 0 {
			return shared.NewInvalidStateError("order has no shipped items")
		}
		return nil
	})
}

// CancelOrder cancels a customer order. Held stock is released. Draft
// purchase orders drop the order's demand; confirmed and sent ones are
// cancelled and their other items return to pending. Supplier-side cancels
// run after the commit and their failures are only logged.
func (s *Service) CancelOrder(ctx context.Context, tenantID, orderID uuid.UUID, reason string) (*procurement.CustomerOrder, error) {
	if reason == "" {
		reason = "customer order cancelled"
	}
	var toCancel []*procurement.SupplierPurchaseOrder
	order, err := s.mutateOrder(ctx, tenantID, orderID, func(repos uow.Repositories, order *procurement.CustomerOrder) error {
		toCancel = nil
		if err := order.Cancel(); err != nil {
			return err
		}

		cancelled := make(map[uuid.UUID]bool, len(order.Items))
		poIDs := make([]uuid.UUID, 0)
		seen := make(map[uuid.UUID]bool)
		for i := range order.Items {
			item := &order.Items[i]
			cancelled[item.ID] = true
			if item.PurchaseOrderID != nil && !seen[*item.PurchaseOrderID] {
				seen[*item.PurchaseOrderID] = true
				poIDs = append(poIDs, *item.PurchaseOrderID)
			}
			if item.ReservedQuantity.IsPositive() && item.ReservedWarehouseID != nil {
				_, err := s.ledger.ReleaseTx(ctx, repos, appinventory.ReleaseRequest{
					TenantID:    tenantID,
					WarehouseID: *item.ReservedWarehouseID,
					ProductID:   item.ProductID,
					Quantity:    item.ReservedQuantity,
					Movement:    inventory.MovementContext{OrderRef: order.ExternalRef, Actor: "procurement", Reason: reason},
				})
				if err != nil {
					return err
				}
			}
			item.ClearReservation()
		}

		pos, err := repos.PurchaseOrders().FindByIDs(ctx, tenantID, poIDs)
		if err != nil {
			return err
		}
		for i := range pos {
			po := &pos[i]
			if po.Status.IsTerminal() {
				continue
			}
			if err := s.detachOrder(ctx, repos, po, cancelled, reason); err != nil {
				return err
			}
			if po.Status == procurement.PurchaseOrderStatusCancelled && po.ExternalOrderID != "" {
				toCancel = append(toCancel, po)
			}
			if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
				return err
			}
			if err := uow.RecordEvents(ctx, repos, po); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, po := range toCancel {
		s.cancelAtSupplier(ctx, po, reason)
	}
	logger.WithLogger(logger.WithTenantID(ctx, tenantID.String()), s.logger).Info("Customer order cancelled",
		zap.String("order_id", order.ID.String()), zap.Int("supplier_cancels", len(toCancel)))
	return order, nil
}

// detachOrder takes the cancelled items off a purchase order
func (s *Service) detachOrder(ctx context.Context, repos uow.Repositories, po *procurement.SupplierPurchaseOrder, cancelled map[uuid.UUID]bool, reason string) error {
	if po.Status == procurement.PurchaseOrderStatusDraft {
		for itemID := range cancelled {
			if _, err := po.DetachItem(itemID); err != nil {
				return err
			}
		}
		if po.IsEmpty() {
			return po.Cancel(reason)
		}
		return nil
	}

	if err := po.Cancel(reason); err != nil {
		return err
	}
	items, err := repos.OrderItems().FindByPurchaseOrder(ctx, po.TenantID, po.ID)
	if err != nil {
		return err
	}
	for i := range items {
		if cancelled[items[i].ID] {
			continue
		}
		items[i].RevertToPending()
		if err := repos.OrderItems().Save(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) mutateOrder(ctx context.Context, tenantID, orderID uuid.UUID, fn func(uow.Repositories, *procurement.CustomerOrder) error) (*procurement.CustomerOrder, error) {
	var order *procurement.CustomerOrder
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if order, err = repos.Orders().FindByIDForTenant(ctx, tenantID, orderID); err != nil {
			return err
		}
		if err := fn(repos, order); err != nil {
			return err
		}
		order.RefreshStatus()
		if err := repos.Orders().Save(ctx, order); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
