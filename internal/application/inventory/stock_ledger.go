package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
)

// DefaultHistoryLimit caps movement history queries
const DefaultHistoryLimit = 100

// StockLedger owns every change to warehouse stock links. Each mutation
// locks the (warehouse, product) row, updates the counters, appends an
// immutable movement and records the resulting events, all in one
// transaction.
type StockLedger struct {
	scope        uow.TransactionScope
	logger       *zap.Logger
	allowPartial bool
}

// LedgerOption configures a StockLedger
type LedgerOption func(*StockLedger)

// WithPartialFallback enables the multi-warehouse fallback: when no single
// warehouse can serve a reservation, the first ranked warehouse with stock
// is reserved in full and the remainder is reported as shortfall.
func WithPartialFallback(enabled bool) LedgerOption {
	return func(l *StockLedger) {
		l.allowPartial = enabled
	}
}

// NewStockLedger creates a StockLedger
func NewStockLedger(scope uow.TransactionScope, log *zap.Logger, opts ...LedgerOption) *StockLedger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &StockLedger{scope: scope, logger: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve places a reservation on a single warehouse
func (l *StockLedger) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	var result *ReserveResult
	err := l.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		result, err = l.ReserveTx(ctx, repos, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReserveTx is Reserve inside a caller-owned unit of work
func (l *StockLedger) ReserveTx(ctx context.Context, repos uow.Repositories, req ReserveRequest) (*ReserveResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	links, err := repos.StockLinks().FindByProductForUpdate(ctx, req.TenantID, req.ProductID)
	if err != nil {
		return nil, err
	}
	warehouses, err := repos.Warehouses().FindActive(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	priority := make(map[uuid.UUID]int, len(warehouses))
	for _, w := range warehouses {
		if req.SkipVirtual && w.IsVirtual() {
			continue
		}
		priority[w.ID] = w.Priority
	}

	candidates := make([]inventory.Candidate, 0, len(links))
	for i := range links {
		p, active := priority[links[i].WarehouseID]
		if !active {
			continue
		}
		candidates = append(candidates, inventory.Candidate{Link: &links[i], Priority: p})
	}

	allowPartial := l.allowPartial || req.AllowPartial
	chosen, alloc, err := inventory.SelectWarehouse(req.ProductID, candidates, req.Quantity, req.PreferredWarehouseID, allowPartial)
	if err != nil {
		return nil, err
	}

	link := chosen.Link
	if err := link.Reserve(alloc.Quantity); err != nil {
		return nil, err
	}
	warehouseID := link.WarehouseID
	movement := inventory.NewStockMovement(req.TenantID, req.ProductID, inventory.MovementTypeReserve, &warehouseID, nil, alloc.Quantity, req.Movement)
	if err := l.persist(ctx, repos, movement, link); err != nil {
		return nil, err
	}

	if alloc.Shortfall.IsPositive() {
		logger.WithLogger(ctx, l.logger).Info("reservation served partially",
			zap.String("product_id", req.ProductID.String()),
			zap.String("warehouse_id", warehouseID.String()),
			zap.String("reserved", alloc.Quantity.String()),
			zap.String("shortfall", alloc.Shortfall.String()),
		)
	}

	return &ReserveResult{
		WarehouseID: alloc.WarehouseID,
		UnitPrice:   alloc.UnitPrice,
		Quantity:    alloc.Quantity,
		Shortfall:   alloc.Shortfall,
	}, nil
}

// Release decrements reserved, floored at zero, and returns the amount
// actually released
func (l *StockLedger) Release(ctx context.Context, req ReleaseRequest) (decimal.Decimal, error) {
	var released decimal.Decimal
	err := l.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		released, err = l.ReleaseTx(ctx, repos, req)
		return err
	})
	return released, err
}

// ReleaseTx is Release inside a caller-owned unit of work
func (l *StockLedger) ReleaseTx(ctx context.Context, repos uow.Repositories, req ReleaseRequest) (decimal.Decimal, error) {
	if err := validateRow(req.TenantID, req.WarehouseID, req.ProductID, req.Quantity); err != nil {
		return decimal.Zero, err
	}
	link, err := repos.StockLinks().FindByWarehouseProductForUpdate(ctx, req.TenantID, req.WarehouseID, req.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	released, err := link.Release(req.Quantity)
	if err != nil {
		return decimal.Zero, err
	}
	if released.IsZero() {
		link.ClearDomainEvents()
		return decimal.Zero, nil
	}
	movement := inventory.NewStockMovement(req.TenantID, req.ProductID, inventory.MovementTypeRelease, nil, &req.WarehouseID, released, req.Movement)
	if err := l.persist(ctx, repos, movement, link); err != nil {
		return decimal.Zero, err
	}
	return released, nil
}

// Confirm consumes reserved stock for a shipped order
func (l *StockLedger) Confirm(ctx context.Context, req ConfirmRequest) error {
	return l.scope.Execute(ctx, func(repos uow.Repositories) error {
		return l.ConfirmTx(ctx, repos, req)
	})
}

// ConfirmTx is Confirm inside a caller-owned unit of work
func (l *StockLedger) ConfirmTx(ctx context.Context, repos uow.Repositories, req ConfirmRequest) error {
	if err := validateRow(req.TenantID, req.WarehouseID, req.ProductID, req.Quantity); err != nil {
		return err
	}
	link, err := repos.StockLinks().FindByWarehouseProductForUpdate(ctx, req.TenantID, req.WarehouseID, req.ProductID)
	if err != nil {
		return err
	}
	if err := link.Consume(req.Quantity); err != nil {
		return err
	}
	mc := req.Movement
	if mc.OrderRef == "" {
		mc.OrderRef = req.OrderRef
	}
	movement := inventory.NewStockMovement(req.TenantID, req.ProductID, inventory.MovementTypeConsume, &req.WarehouseID, nil, req.Quantity, mc)
	return l.persist(ctx, repos, movement, link)
}

// SetStock overwrites the on-hand quantity of a link, creating the link if
// needed. A movement is recorded only when the quantity changed.
func (l *StockLedger) SetStock(ctx context.Context, req SetStockRequest) (decimal.Decimal, error) {
	var delta decimal.Decimal
	err := l.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		delta, err = l.SetStockTx(ctx, repos, req)
		return err
	})
	return delta, err
}

// SetStockTx is SetStock inside a caller-owned unit of work
func (l *StockLedger) SetStockTx(ctx context.Context, repos uow.Repositories, req SetStockRequest) (decimal.Decimal, error) {
	if req.TenantID == uuid.Nil || req.WarehouseID == uuid.Nil || req.ProductID == uuid.Nil {
		return decimal.Zero, shared.NewValidationError("tenant, warehouse and product are required")
	}
	link, err := repos.StockLinks().FindByWarehouseProductForUpdate(ctx, req.TenantID, req.WarehouseID, req.ProductID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, err
		}
		if link, err = inventory.NewStockLink(req.TenantID, req.WarehouseID, req.ProductID); err != nil {
			return decimal.Zero, err
		}
	}

	priceChanged := req.UnitPrice != nil && !req.UnitPrice.Equal(link.UnitPrice)
	delta, err := link.SetQuantity(req.Quantity, req.UnitPrice)
	if err != nil {
		return decimal.Zero, err
	}

	if delta.IsZero() {
		link.ClearDomainEvents()
		if priceChanged {
			return decimal.Zero, repos.StockLinks().Save(ctx, link)
		}
		return decimal.Zero, nil
	}

	var movement *inventory.StockMovement
	if delta.IsPositive() {
		movement = inventory.NewStockMovement(req.TenantID, req.ProductID, inventory.MovementTypeAdjustmentPlus, nil, &req.WarehouseID, delta, req.Movement)
	} else {
		movement = inventory.NewStockMovement(req.TenantID, req.ProductID, inventory.MovementTypeAdjustmentMinus, &req.WarehouseID, nil, delta, req.Movement)
	}
	if err := l.persist(ctx, repos, movement, link); err != nil {
		return decimal.Zero, err
	}
	return delta, nil
}

// Move transfers unreserved stock between two warehouses atomically
func (l *StockLedger) Move(ctx context.Context, req MoveRequest) error {
	return l.scope.Execute(ctx, func(repos uow.Repositories) error {
		return l.MoveTx(ctx, repos, req)
	})
}

// MoveTx is Move inside a caller-owned unit of work
func (l *StockLedger) MoveTx(ctx context.Context, repos uow.Repositories, req MoveRequest) error {
	if err := validateRow(req.TenantID, req.FromWarehouseID, req.ProductID, req.Quantity); err != nil {
		return err
	}
	if req.ToWarehouseID == uuid.Nil {
		return shared.NewValidationError("destination warehouse is required")
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return shared.NewValidationError("source and destination warehouse must differ")
	}
	if _, err := repos.Warehouses().FindByIDForTenant(ctx, req.TenantID, req.ToWarehouseID); err != nil {
		return err
	}

	// lock rows in a fixed order so concurrent opposite moves cannot deadlock
	first, second := req.FromWarehouseID, req.ToWarehouseID
	if second.String() < first.String() {
		first, second = second, first
	}
	locked := make(map[uuid.UUID]*inventory.StockLink, 2)
	for _, wh := range []uuid.UUID{first, second} {
		link, err := repos.StockLinks().FindByWarehouseProductForUpdate(ctx, req.TenantID, wh, req.ProductID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if wh == req.FromWarehouseID {
				return inventory.NewInsufficientStockError(req.ProductID, &req.FromWarehouseID, req.Quantity, decimal.Zero)
			}
			if link, err = inventory.NewStockLink(req.TenantID, wh, req.ProductID); err != nil {
				return err
			}
		}
		locked[wh] = link
	}

	source, dest := locked[req.FromWarehouseID], locked[req.ToWarehouseID]
	if err := source.TransferOut(req.Quantity); err != nil {
		return err
	}
	if err := dest.TransferIn(req.Quantity); err != nil {
		return err
	}
	if dest.UnitPrice.IsZero() {
		dest.UnitPrice = source.UnitPrice
	}

	movement := inventory.NewStockMovement(req.TenantID, req.ProductID, inventory.MovementTypeTransfer, &req.FromWarehouseID, &req.ToWarehouseID, req.Quantity, req.Movement)
	return l.persist(ctx, repos, movement, source, dest)
}

// Stock returns the counters of one link
func (l *StockLedger) Stock(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockLink, error) {
	return l.scope.Repositories().StockLinks().FindByWarehouseProduct(ctx, tenantID, warehouseID, productID)
}

// StockByProduct lists the links of a product across warehouses
func (l *StockLedger) StockByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.StockLink, error) {
	return l.scope.Repositories().StockLinks().FindByProduct(ctx, tenantID, productID)
}

// History lists movements of a (warehouse, product) pair, newest first
func (l *StockLedger) History(ctx context.Context, tenantID, warehouseID, productID uuid.UUID, limit int) ([]inventory.StockMovement, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return l.scope.Repositories().Movements().FindByWarehouseProduct(ctx, tenantID, warehouseID, productID, limit)
}

func (l *StockLedger) persist(ctx context.Context, repos uow.Repositories, movement *inventory.StockMovement, links ...*inventory.StockLink) error {
	sources := make([]uow.EventSource, 0, len(links))
	for _, link := range links {
		if err := link.CheckInvariants(); err != nil {
			return err
		}
		if err := repos.StockLinks().Save(ctx, link); err != nil {
			return err
		}
		sources = append(sources, link)
	}
	if err := repos.Movements().Create(ctx, movement); err != nil {
		return err
	}
	l.logger.Debug("stock movement",
		zap.String("type", string(movement.Type)),
		zap.String("product_id", movement.ProductID.String()),
		zap.String("quantity", movement.Quantity.String()),
	)
	return uow.RecordEvents(ctx, repos, sources...)
}

func validateRow(tenantID, warehouseID, productID uuid.UUID, quantity decimal.Decimal) error {
	if tenantID == uuid.Nil || warehouseID == uuid.Nil || productID == uuid.Nil {
		return shared.NewValidationError("tenant, warehouse and product are required")
	}
	if !quantity.IsPositive() {
		return shared.NewValidationError("quantity must be positive")
	}
	return nil
}
