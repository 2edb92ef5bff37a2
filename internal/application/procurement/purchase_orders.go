package procurement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// PurchaseOrder reads one purchase order with its lines
func (s *Service) PurchaseOrder(ctx context.Context, tenantID, id uuid.UUID) (*procurement.SupplierPurchaseOrder, error) {
	return s.scope.Repositories().PurchaseOrders().FindByIDForTenant(ctx, tenantID, id)
}

// PurchaseOrdersOfRun lists the purchase orders a run created
func (s *Service) PurchaseOrdersOfRun(ctx context.Context, tenantID, runID uuid.UUID) ([]procurement.SupplierPurchaseOrder, error) {
	repos := s.scope.Repositories()
	run, err := repos.Runs().FindByIDForTenant(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	return repos.PurchaseOrders().FindByBatch(ctx, tenantID, run.BatchID)
}

// UpdateLineQuantity changes the quantity of a draft line
func (s *Service) UpdateLineQuantity(ctx context.Context, tenantID, poID, productID uuid.UUID, quantity decimal.Decimal) (*procurement.SupplierPurchaseOrder, error) {
	var po *procurement.SupplierPurchaseOrder
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if po, err = repos.PurchaseOrders().FindByIDForTenant(ctx, tenantID, poID); err != nil {
			return err
		}
		if err := po.UpdateLineQuantity(productID, quantity); err != nil {
			return err
		}
		return repos.PurchaseOrders().Save(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// RemoveLine drops a product from a draft. Every order item that fed the
// line gets a manual override so later passes leave it alone. A draft left
// without lines is cancelled.
func (s *Service) RemoveLine(ctx context.Context, tenantID, poID, productID uuid.UUID, reason, actor string) (*procurement.SupplierPurchaseOrder, error) {
	if reason == "" {
		reason = "removed from draft purchase order"
	}
	var po *procurement.SupplierPurchaseOrder
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if po, err = repos.PurchaseOrders().FindByIDForTenant(ctx, tenantID, poID); err != nil {
			return err
		}
		line, err := po.RemoveLine(productID)
		if err != nil {
			return err
		}
		items, err := repos.OrderItems().FindByIDs(ctx, tenantID, line.OrderItemIDs())
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			if err := s.ensureOverride(ctx, repos, item, reason, actor); err != nil {
				return err
			}
			item.RevertToPending()
			if err := repos.OrderItems().Save(ctx, item); err != nil {
				return err
			}
		}
		if po.IsEmpty() {
			if err := po.Cancel("all lines removed"); err != nil {
				return err
			}
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// ConfirmPurchaseOrder approves a draft and sends it. The reserved items of
// the customer orders behind it advance to confirmed. A send failure is
// returned together with the order, which is then in error.
func (s *Service) ConfirmPurchaseOrder(ctx context.Context, tenantID, poID uuid.UUID) (*procurement.SupplierPurchaseOrder, error) {
	var po *procurement.SupplierPurchaseOrder
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if po, err = repos.PurchaseOrders().FindByIDForTenant(ctx, tenantID, poID); err != nil {
			return err
		}
		if err := po.Confirm(); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		return s.confirmReservedItems(ctx, repos, tenantID, po.OrderItemIDs())
	})
	if err != nil {
		return nil, err
	}
	return po, s.send(ctx, po)
}

func (s *Service) confirmReservedItems(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID, itemIDs []uuid.UUID) error {
	items, err := repos.OrderItems().FindByIDs(ctx, tenantID, itemIDs)
	if err != nil {
		return err
	}
	orderIDs := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if !seen[item.OrderID] {
			seen[item.OrderID] = true
			orderIDs = append(orderIDs, item.OrderID)
		}
	}
	orders, err := repos.Orders().FindByIDs(ctx, tenantID, orderIDs)
	if err != nil {
		return err
	}
	for i := range orders {
		changed := false
		for j := range orders[i].Items {
			item := &orders[i].Items[j]
			if item.FulfillmentStatus != procurement.FulfillmentStatusReserved {
				continue
			}
			if err := item.Confirm(); err != nil {
				return err
			}
			changed = true
		}
		if changed {
			if err := repos.Orders().Save(ctx, &orders[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// SendPurchaseOrder sends a confirmed order that has not reached the
// supplier yet
func (s *Service) SendPurchaseOrder(ctx context.Context, tenantID, poID uuid.UUID) (*procurement.SupplierPurchaseOrder, error) {
	po, err := s.scope.Repositories().PurchaseOrders().FindByIDForTenant(ctx, tenantID, poID)
	if err != nil {
		return nil, err
	}
	if po.Status != procurement.PurchaseOrderStatusConfirmed {
		return nil, shared.NewInvalidStateError("cannot send purchase order in %s status", po.Status)
	}
	return po, s.send(ctx, po)
}

// CancelPurchaseOrder cancels an order. Its items return to pending. For an
// order the supplier already holds a supplier-side cancel is attempted; its
// failure is logged.
func (s *Service) CancelPurchaseOrder(ctx context.Context, tenantID, poID uuid.UUID, reason string) (*procurement.SupplierPurchaseOrder, error) {
	var (
		po      *procurement.SupplierPurchaseOrder
		wasSent bool
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		if po, err = repos.PurchaseOrders().FindByIDForTenant(ctx, tenantID, poID); err != nil {
			return err
		}
		wasSent = po.Status == procurement.PurchaseOrderStatusSent
		if err := po.Cancel(reason); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		items, err := repos.OrderItems().FindByPurchaseOrder(ctx, tenantID, po.ID)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].RevertToPending()
			if err := repos.OrderItems().Save(ctx, &items[i]); err != nil {
				return err
			}
		}
		return uow.RecordEvents(ctx, repos, po)
	})
	if err != nil {
		return nil, err
	}
	if wasSent {
		s.cancelAtSupplier(ctx, po, reason)
	}
	return po, nil
}

func (s *Service) cancelAtSupplier(ctx context.Context, po *procurement.SupplierPurchaseOrder, reason string) {
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("purchase_order_id", po.ID.String()),
		zap.String("external_order_id", po.ExternalOrderID))
	if po.ExternalOrderID == "" {
		return
	}
	conn, err := s.connector(ctx, po.TenantID, po.SupplierID)
	if err == nil {
		err = conn.CancelOrder(ctx, po.ExternalOrderID, reason)
	}
	if err != nil {
		log.Warn("Supplier-side cancel failed", zap.Error(err))
		return
	}
	log.Info("Purchase order cancelled at supplier")
}

// ConfirmRun confirms and sends every draft a run created
func (s *Service) ConfirmRun(ctx context.Context, tenantID, runID uuid.UUID) (*shared.BatchResult, error) {
	orders, err := s.PurchaseOrdersOfRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	result := &shared.BatchResult{}
	for _, po := range orders {
		if po.Status != procurement.PurchaseOrderStatusDraft {
			continue
		}
		if _, err := s.ConfirmPurchaseOrder(ctx, tenantID, po.ID); err != nil {
			result.Fail(po.ID.String(), err)
			continue
		}
		result.Success()
	}
	return result, nil
}

// CancelRun cancels every purchase order of a run that is still in flight
func (s *Service) CancelRun(ctx context.Context, tenantID, runID uuid.UUID, reason string) (*shared.BatchResult, error) {
	orders, err := s.PurchaseOrdersOfRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	result := &shared.BatchResult{}
	for _, po := range orders {
		if po.Status.IsTerminal() {
			continue
		}
		if _, err := s.CancelPurchaseOrder(ctx, tenantID, po.ID, reason); err != nil {
			result.Fail(po.ID.String(), err)
			continue
		}
		result.Success()
	}
	return result, nil
}

// RefreshPurchaseOrderStatus asks the supplier for the status of a sent order
func (s *Service) RefreshPurchaseOrderStatus(ctx context.Context, tenantID, poID uuid.UUID) (*procurement.SupplierPurchaseOrder, error) {
	po, err := s.scope.Repositories().PurchaseOrders().FindByIDForTenant(ctx, tenantID, poID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// RefreshSentOrders polls the supplier status of sent orders of all tenants
func (s *Service) RefreshSentOrders(ctx context.Context) (*shared.BatchResult, error) {
	orders, err := s.scope.Repositories().PurchaseOrders().FindByStatus(ctx, uuid.Nil, procurement.PurchaseOrderStatusSent, s.cfg.StatusBatch)
	if err != nil {
		return nil, err
	}
	result := &shared.BatchResult{}
	for i := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.refresh(ctx, &orders[i]); err != nil {
			result.Fail(orders[i].ID.String(), err)
			continue
		}
		result.Success()
	}
	if result.Failed > 0 {
		s.logger.Warn("Status polling had failures", zap.Int("failed", result.Failed), zap.Int("processed", result.Processed))
	}
	return result, nil
}

func (s *Service) refresh(ctx context.Context, po *procurement.SupplierPurchaseOrder) error {
	if po.Status != procurement.PurchaseOrderStatusSent || po.ExternalOrderID == "" {
		return shared.NewInvalidStateError("purchase order %s has not been sent", po.ID)
	}
	conn, err := s.connector(ctx, po.TenantID, po.SupplierID)
	if err != nil {
		return err
	}
	status, err := conn.GetOrderStatus(ctx, po.ExternalOrderID)
	if err != nil {
		return err
	}
	if status == nil {
		return errors.New("supplier returned no order status")
	}
	po.UpdateExternalStatus(status.Status)
	return s.scope.Repositories().PurchaseOrders().Save(ctx, po)
}
