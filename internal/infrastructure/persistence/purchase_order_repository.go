package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}

// FindByIDForTenant finds an order with its lines
func (r *GormPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.SupplierPurchaseOrder, error) {
	var order procurement.SupplierPurchaseOrder
	if err := preloadLines(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	order.MarkStored()
	return &order, nil
}

// FindByIDs finds orders with their lines
func (r *GormPurchaseOrderRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]procurement.SupplierPurchaseOrder, error) {
	if len(ids) == 0 {
		return []procurement.SupplierPurchaseOrder{}, nil
	}
	var orders []procurement.SupplierPurchaseOrder
	if err := preloadLines(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return loadedOrders(orders), nil
}

// FindByBatch lists the orders created by one run
func (r *GormPurchaseOrderRepository) FindByBatch(ctx context.Context, tenantID, batchID uuid.UUID) ([]procurement.SupplierPurchaseOrder, error) {
	var orders []procurement.SupplierPurchaseOrder
	if err := preloadLines(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return loadedOrders(orders), nil
}

// FindByStatus lists orders in a status, or of all tenants when tenantID is uuid.Nil
func (r *GormPurchaseOrderRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status procurement.PurchaseOrderStatus, limit int) ([]procurement.SupplierPurchaseOrder, error) {
	query := preloadLines(r.db.WithContext(ctx)).Where("status = ?", status)
	if tenantID != uuid.Nil {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var orders []procurement.SupplierPurchaseOrder
	if err := query.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return loadedOrders(orders), nil
}

func loadedOrders(orders []procurement.SupplierPurchaseOrder) []procurement.SupplierPurchaseOrder {
	for i := range orders {
		orders[i].MarkStored()
	}
	return orders
}

// Save creates or updates an order and its lines. Lines no longer on the
// order are deleted. Saving a copy read before another writer committed
// fails with shared.ErrConcurrencyConflict.
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *procurement.SupplierPurchaseOrder) error {
	db := r.db.WithContext(ctx)
	if err := saveVersioned(db, order, &order.TenantAggregateRoot); err != nil {
		return err
	}

	keep := make([]uuid.UUID, 0, len(order.Lines))
	for _, line := range order.Lines {
		keep = append(keep, line.ID)
	}
	stale := db.Where("order_id = ?", order.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&procurement.PurchaseOrderLine{}).Error; err != nil {
		return err
	}

	for i := range order.Lines {
		if err := db.Save(&order.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// GormRunRepository implements RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// FindByIDForTenant finds a run by ID
func (r *GormRunRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.Run, error) {
	var run procurement.Run
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// FindByChannel lists the most recent runs of a channel
func (r *GormRunRepository) FindByChannel(ctx context.Context, tenantID, channelID uuid.UUID, limit int) ([]procurement.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []procurement.Run
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND channel_id = ?", tenantID, channelID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Save creates or updates a run
func (r *GormRunRepository) Save(ctx context.Context, run *procurement.Run) error {
	return r.db.WithContext(ctx).Save(run).Error
}

var (
	_ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
	_ procurement.RunRepository           = (*GormRunRepository)(nil)
)
