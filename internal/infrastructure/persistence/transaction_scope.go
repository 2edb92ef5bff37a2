package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/application/uow"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// OutboxWriter stores domain events using the given transaction
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations across
// bounded contexts, with outbox writes in the same transaction.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxWriter) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back and the
// error is returned as a shared.TransactionError.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{db: tx, outbox: s.outbox})
	})
	return shared.NewTransactionError("", err)
}

// Repositories returns repositories bound to the pool. Events recorded
// through them are written immediately.
func (s *GormTransactionScope) Repositories() uow.Repositories {
	return &gormRepositories{db: s.db, outbox: s.outbox}
}

// gormRepositories provides access to all repositories on one connection.
type gormRepositories struct {
	db     *gorm.DB
	outbox OutboxWriter
}

func (r *gormRepositories) Suppliers() partner.SupplierRepository {
	return NewGormSupplierRepository(r.db)
}

func (r *gormRepositories) Warehouses() partner.WarehouseRepository {
	return NewGormWarehouseRepository(r.db)
}

func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.db)
}

func (r *gormRepositories) Offers() catalog.SupplierOfferRepository {
	return NewGormSupplierOfferRepository(r.db)
}

func (r *gormRepositories) ContentSources() catalog.BrandContentSourceRepository {
	return NewGormBrandContentSourceRepository(r.db)
}

func (r *gormRepositories) SyncRuns() catalog.SyncRunRepository {
	return NewGormSyncRunRepository(r.db)
}

func (r *gormRepositories) StockLinks() inventory.StockLinkRepository {
	return NewGormStockLinkRepository(r.db)
}

func (r *gormRepositories) Movements() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.db)
}

func (r *gormRepositories) Channels() marketplace.SalesChannelRepository {
	return NewGormSalesChannelRepository(r.db)
}

func (r *gormRepositories) PriceLinks() marketplace.PriceLinkRepository {
	return NewGormPriceLinkRepository(r.db)
}

func (r *gormRepositories) Orders() procurement.CustomerOrderRepository {
	return NewGormCustomerOrderRepository(r.db)
}

func (r *gormRepositories) OrderItems() procurement.OrderItemRepository {
	return NewGormOrderItemRepository(r.db)
}

func (r *gormRepositories) Overrides() procurement.ManualOverrideRepository {
	return NewGormManualOverrideRepository(r.db)
}

func (r *gormRepositories) PurchaseOrders() procurement.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.db)
}

func (r *gormRepositories) Runs() procurement.RunRepository {
	return NewGormRunRepository(r.db)
}

func (r *gormRepositories) Events() shared.EventRecorder {
	return &outboxRecorder{db: r.db, outbox: r.outbox}
}

// outboxRecorder adapts the outbox writer to shared.EventRecorder
type outboxRecorder struct {
	db     *gorm.DB
	outbox OutboxWriter
}

var errNoOutbox = errors.New("no outbox writer configured")

func (o *outboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	if o.outbox == nil {
		return errNoOutbox
	}
	return o.outbox.PublishWithTx(ctx, o.db, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ uow.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormRepositories implements Repositories
var _ uow.Repositories = (*gormRepositories)(nil)
