// Package procurement turns unmet customer demand into supplier purchase
// orders and drives those orders and customer orders through their lifecycle.
package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	"github.com/vde76ru/module-sub000/internal/application/pricing"
	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// CodeUnfulfillable marks an item no active supplier offers
const CodeUnfulfillable = "UNFULFILLABLE"

// DefaultRunListLimit caps run history queries
const DefaultRunListLimit = 50

// Config tunes the orchestrator
type Config struct {
	LockTTL time.Duration
	// StatusBatch bounds one supplier status polling pass
	StatusBatch int
}

func (c Config) withDefaults() Config {
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Minute
	}
	if c.StatusBatch <= 0 {
		c.StatusBatch = 200
	}
	return c
}

// Service orchestrates procurement. Runs are exclusive per (tenant, channel).
type Service struct {
	scope    uow.TransactionScope
	registry integration.ConnectorRegistry
	ledger   *appinventory.StockLedger
	locker   shared.RunLocker
	rates    pricing.RateProvider
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a procurement service
func NewService(scope uow.TransactionScope, registry integration.ConnectorRegistry, ledger *appinventory.StockLedger,
	locker shared.RunLocker, rates pricing.RateProvider, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		scope:    scope,
		registry: registry,
		ledger:   ledger,
		locker:   locker,
		rates:    rates,
		cfg:      cfg.withDefaults(),
		logger:   log,
	}
}

// LockKey is the run lock key of a channel
func LockKey(tenantID, channelID uuid.UUID) string {
	return fmt.Sprintf("procurement:%s:%s", tenantID, channelID)
}

// Run performs one procurement pass over a channel. New items are first
// reserved from own stock and only the shortfall is routed to suppliers,
// one draft purchase order per supplier. When the channel auto-confirms
// the drafts are sent. A concurrent pass for the same channel yields
// RUN_IN_PROGRESS.
func (s *Service) Run(ctx context.Context, tenantID, channelID uuid.UUID, trigger string) (*procurement.Run, error) {
	lock, err := s.locker.TryLock(ctx, LockKey(tenantID, channelID), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release procurement lock", zap.String("key", lock.Key()), zap.Error(err))
		}
	}()

	repos := s.scope.Repositories()
	channel, err := repos.Channels().FindByIDForTenant(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsActive() {
		return nil, shared.NewInvalidStateError("channel %s is inactive", channel.Code)
	}

	run := procurement.NewRun(tenantID, channelID, trigger)
	if err := repos.Runs().Save(ctx, run); err != nil {
		return nil, err
	}
	ctx = logger.WithTenantID(ctx, tenantID.String())
	ctx = logger.WithRunID(ctx, run.ID.String())
	ctx = logger.WithBatchID(ctx, run.BatchID.String())
	log := logger.WithLogger(ctx, s.logger)
	log.Info("Procurement run started", zap.String("channel", channel.Code), zap.String("trigger", trigger))

	if err := s.reserveNewItems(ctx, run, channel); err != nil {
		log.Error("Procurement run failed", zap.Error(err))
		run.Abort(err)
		return run, errors.Join(err, s.saveRun(ctx, run))
	}
	orders, err := s.plan(ctx, run)
	if err != nil {
		log.Error("Procurement run failed", zap.Error(err))
		run.Abort(err)
		return run, errors.Join(err, s.saveRun(ctx, run))
	}

	if channel.AutoConfirm {
		for _, po := range orders {
			if err := s.send(ctx, po); err != nil {
				run.OrdersFailed++
				run.RecordError(po.ID.String(), err)
				continue
			}
			run.OrdersSent++
		}
	}

	run.Finish()
	log.Info("Procurement run finished",
		zap.Int("collected", run.Collected),
		zap.Int("reserved", run.Reserved),
		zap.Int("ordered", run.Ordered),
		zap.Int("unfulfillable", run.Unfulfillable),
		zap.Int("orders_created", run.OrdersCreated),
		zap.Int("orders_sent", run.OrdersSent),
		zap.Int("orders_failed", run.OrdersFailed))
	return run, s.saveRun(ctx, run)
}

// reserveNewItems reserves stock for the procurable items nobody reserved
// yet, so that planning only sees what own warehouses cannot serve
func (s *Service) reserveNewItems(ctx context.Context, run *procurement.Run, channel *marketplace.SalesChannel) error {
	items, err := s.scope.Repositories().OrderItems().FindProcurable(ctx, run.TenantID, run.ChannelID)
	if err != nil {
		return err
	}
	run.Collected = len(items)
	pick := make(map[uuid.UUID]bool, len(items))
	seenOrder := make(map[uuid.UUID]bool)
	orderIDs := make([]uuid.UUID, 0)
	for _, item := range items {
		if item.FulfillmentStatus != procurement.FulfillmentStatusNew {
			continue
		}
		pick[item.ID] = true
		if !seenOrder[item.OrderID] {
			seenOrder[item.OrderID] = true
			orderIDs = append(orderIDs, item.OrderID)
		}
	}
	if len(pick) == 0 {
		return nil
	}

	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		run.Reserved = 0
		orders, err := repos.Orders().FindByIDs(ctx, run.TenantID, orderIDs)
		if err != nil {
			return err
		}
		for i := range orders {
			order := &orders[i]
			changed := false
			for j := range order.Items {
				item := &order.Items[j]
				if !pick[item.ID] || item.FulfillmentStatus != procurement.FulfillmentStatusNew || !item.NeedsProcurement() {
					continue
				}
				if err := s.reserveItem(ctx, repos, order, item, channel.PreferredWarehouseID); err != nil {
					return err
				}
				if item.ReservedQuantity.IsPositive() {
					run.Reserved++
				}
				changed = true
			}
			if !changed {
				continue
			}
			order.RefreshStatus()
			if err := repos.Orders().Save(ctx, order); err != nil {
				return err
			}
			if err := uow.RecordEvents(ctx, repos, order); err != nil {
				return err
			}
		}
		return nil
	})
}

// plan routes the procurable items and stores the drafts in one transaction
func (s *Service) plan(ctx context.Context, run *procurement.Run) ([]*procurement.SupplierPurchaseOrder, error) {
	log := logger.WithLogger(ctx, s.logger)
	repos := s.scope.Repositories()

	items, err := repos.OrderItems().FindProcurable(ctx, run.TenantID, run.ChannelID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	seenProduct := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		if !seenProduct[item.ProductID] {
			seenProduct[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}
	offers, err := repos.Offers().FindByProducts(ctx, run.TenantID, productIDs)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID][]catalog.SupplierOffer, len(productIDs))
	supplierIDs := make([]uuid.UUID, 0)
	seenSupplier := make(map[uuid.UUID]bool)
	for _, o := range offers {
		byProduct[o.ProductID] = append(byProduct[o.ProductID], o)
		if !seenSupplier[o.SupplierID] {
			seenSupplier[o.SupplierID] = true
			supplierIDs = append(supplierIDs, o.SupplierID)
		}
	}
	suppliers, err := repos.Suppliers().FindByIDs(ctx, run.TenantID, supplierIDs)
	if err != nil {
		return nil, err
	}
	active := make(map[uuid.UUID]bool, len(suppliers))
	for i := range suppliers {
		active[suppliers[i].ID] = suppliers[i].IsActive()
	}
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}

	plan := procurement.PlanPurchases(items, byProduct, active, rates)
	for _, item := range plan.Unfulfillable {
		run.Unfulfillable++
		run.RecordError(item.ID.String(), shared.NewDomainError(CodeUnfulfillable,
			fmt.Sprintf("no available supplier offer for product %s", item.ProductID)))
		log.Warn("Order item has no supplier", zap.String("item_id", item.ID.String()), zap.String("product_id", item.ProductID.String()))
	}

	byID := make(map[uuid.UUID]*procurement.OrderItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	var created []*procurement.SupplierPurchaseOrder
	ordered := 0
	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		created, ordered = nil, 0
		locked, err := s.lockPlanned(ctx, repos, run.TenantID, plan.Groups, byID)
		if err != nil {
			return err
		}
		for _, g := range plan.Groups {
			po, err := procurement.NewSupplierPurchaseOrder(run.TenantID, run.ChannelID, g.SupplierID, run.BatchID, string(g.Currency))
			if err != nil {
				return err
			}
			for _, d := range g.Demands {
				if err := po.AddDemand(d); err != nil {
					return err
				}
			}
			if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
				return err
			}
			for _, d := range g.Demands {
				item := locked[d.OrderItemID]
				if err := item.MarkOrdered(po.ID); err != nil {
					return err
				}
				if err := repos.OrderItems().Save(ctx, item); err != nil {
					return err
				}
				ordered++
			}
			created = append(created, po)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	run.OrdersCreated = len(created)
	run.Ordered = ordered
	return created, nil
}

// lockPlanned re-reads the planned items under lock. An item that left the
// procurable set or changed its quantity since planning aborts the pass.
func (s *Service) lockPlanned(ctx context.Context, repos uow.Repositories, tenantID uuid.UUID,
	groups []procurement.SupplierGroup, planned map[uuid.UUID]*procurement.OrderItem) (map[uuid.UUID]*procurement.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(planned))
	for _, g := range groups {
		for _, d := range g.Demands {
			ids = append(ids, d.OrderItemID)
		}
	}
	items, err := repos.OrderItems().FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	locked := make(map[uuid.UUID]*procurement.OrderItem, len(items))
	for i := range items {
		locked[items[i].ID] = &items[i]
	}
	for _, id := range ids {
		item, ok := locked[id]
		if !ok || !item.NeedsProcurement() || !item.ProcureQuantity.Equal(planned[id].ProcureQuantity) {
			return nil, shared.ErrConcurrencyConflict
		}
	}
	return locked, nil
}

// send places an order with its supplier. A failed send marks the order
// error and reverts its items to failed so a later pass retries them.
func (s *Service) send(ctx context.Context, po *procurement.SupplierPurchaseOrder) error {
	log := logger.WithLogger(ctx, s.logger).With(zap.String("purchase_order_id", po.ID.String()))

	// claim the order first; a concurrent sender holding the same version fails here
	if err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		return repos.PurchaseOrders().Save(ctx, po)
	}); err != nil {
		return err
	}

	result, err := s.createOrder(ctx, po)
	if err != nil {
		log.Warn("Purchase order send failed", zap.Error(err))
		return errors.Join(err, s.compensate(ctx, po, err))
	}

	err = s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if err := po.MarkSent(result.OrderID, result.Status); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, po)
	})
	if err != nil {
		// the supplier holds the order; keep the reference visible for reconciliation
		log.Error("Purchase order sent but not recorded",
			zap.String("external_order_id", result.OrderID), zap.Error(err))
		return err
	}
	log.Info("Purchase order sent", zap.String("external_order_id", result.OrderID))
	return nil
}

func (s *Service) createOrder(ctx context.Context, po *procurement.SupplierPurchaseOrder) (*integration.SupplierOrderResult, error) {
	conn, err := s.connector(ctx, po.TenantID, po.SupplierID)
	if err != nil {
		return nil, err
	}
	req := integration.SupplierOrderRequest{
		Reference: po.ID,
		TenantID:  po.TenantID,
		Currency:  po.Currency,
		Lines:     make([]integration.SupplierOrderLine, 0, len(po.Lines)),
		Comment:   "batch " + po.BatchID.String(),
	}
	for _, line := range po.Lines {
		req.Lines = append(req.Lines, integration.SupplierOrderLine{
			ExternalID: line.ExternalProductID,
			Quantity:   line.Quantity,
			UnitCost:   line.UnitCost,
		})
	}
	result, err := conn.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil || result.OrderID == "" {
		return nil, integration.NewSupplierError(integration.ErrorKindServer, "", "createOrder", "empty order reference", nil)
	}
	return result, nil
}

func (s *Service) compensate(ctx context.Context, po *procurement.SupplierPurchaseOrder, cause error) error {
	return s.scope.Execute(ctx, func(repos uow.Repositories) error {
		if err := po.MarkError(cause); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po); err != nil {
			return err
		}
		items, err := repos.OrderItems().FindByPurchaseOrder(ctx, po.TenantID, po.ID)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].MarkFailed()
			if err := repos.OrderItems().Save(ctx, &items[i]); err != nil {
				return err
			}
		}
		return uow.RecordEvents(ctx, repos, po)
	})
}

func (s *Service) connector(ctx context.Context, tenantID, supplierID uuid.UUID) (integration.SupplierConnector, error) {
	supplier, err := s.scope.Repositories().Suppliers().FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	return s.registry.Connector(supplier.ConnectorType, supplier.ConnectorConfig())
}

func (s *Service) saveRun(ctx context.Context, run *procurement.Run) error {
	return s.scope.Execute(context.WithoutCancel(ctx), func(repos uow.Repositories) error {
		if err := repos.Runs().Save(ctx, run); err != nil {
			return err
		}
		return uow.RecordEvents(ctx, repos, run)
	})
}

// Runs lists the most recent runs of a channel
func (s *Service) Runs(ctx context.Context, tenantID, channelID uuid.UUID, limit int) ([]procurement.Run, error) {
	if limit <= 0 || limit > DefaultRunListLimit {
		limit = DefaultRunListLimit
	}
	return s.scope.Repositories().Runs().FindByChannel(ctx, tenantID, channelID, limit)
}

// GetRun reads one run
func (s *Service) GetRun(ctx context.Context, tenantID, runID uuid.UUID) (*procurement.Run, error) {
	return s.scope.Repositories().Runs().FindByIDForTenant(ctx, tenantID, runID)
}
