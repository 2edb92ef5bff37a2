package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// GormCustomerOrderRepository implements CustomerOrderRepository using GORM
type GormCustomerOrderRepository struct {
	db *gorm.DB
}

// NewGormCustomerOrderRepository creates a new GormCustomerOrderRepository
func NewGormCustomerOrderRepository(db *gorm.DB) *GormCustomerOrderRepository {
	return &GormCustomerOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}

// FindByIDForTenant finds an order with its items
func (r *GormCustomerOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.CustomerOrder, error) {
	var order procurement.CustomerOrder
	if err := preloadItems(r.db.WithContext(ctx)).
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

// FindByExternalRef finds an order by the marketplace reference on a channel
func (r *GormCustomerOrderRepository) FindByExternalRef(ctx context.Context, tenantID, channelID uuid.UUID, externalRef string) (*procurement.CustomerOrder, error) {
	var order procurement.CustomerOrder
	if err := preloadItems(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND channel_id = ? AND external_ref = ?", tenantID, channelID, externalRef).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	order.MarkStored()
	return &order, nil
}

// FindByIDs finds orders with their items
func (r *GormCustomerOrderRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]procurement.CustomerOrder, error) {
	if len(ids) == 0 {
		return []procurement.CustomerOrder{}, nil
	}
	var orders []procurement.CustomerOrder
	if err := preloadItems(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].MarkStored()
	}
	return orders, nil
}

// Save creates or updates an order and its items. Saving a copy read before
// another writer committed fails with shared.ErrConcurrencyConflict.
func (r *GormCustomerOrderRepository) Save(ctx context.Context, order *procurement.CustomerOrder) error {
	db := r.db.WithContext(ctx)
	if err := saveVersioned(db, order, &order.TenantAggregateRoot); err != nil {
		return err
	}
	for i := range order.Items {
		if err := db.Save(&order.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// GormOrderItemRepository implements OrderItemRepository using GORM
type GormOrderItemRepository struct {
	db *gorm.DB
}

// NewGormOrderItemRepository creates a new GormOrderItemRepository
func NewGormOrderItemRepository(db *gorm.DB) *GormOrderItemRepository {
	return &GormOrderItemRepository{db: db}
}

// FindProcurable lists pending and failed items of a channel that still
// have quantity to procure and carry no manual override, oldest first
func (r *GormOrderItemRepository) FindProcurable(ctx context.Context, tenantID, channelID uuid.UUID) ([]procurement.OrderItem, error) {
	overridden := r.db.Model(&procurement.ManualOverride{}).
		Select("1").
		Where("procurement_overrides.order_item_id = order_items.id")

	var items []procurement.OrderItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND channel_id = ?", tenantID, channelID).
		Where("procurement_status IN ?", []procurement.ProcurementStatus{
			procurement.ProcurementStatusPending,
			procurement.ProcurementStatusFailed,
		}).
		Where("procure_quantity > 0").
		Where("NOT EXISTS (?)", overridden).
		Order("created_at ASC").Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByIDs finds items by ID and locks them for update
func (r *GormOrderItemRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]procurement.OrderItem, error) {
	if len(ids) == 0 {
		return []procurement.OrderItem{}, nil
	}
	var items []procurement.OrderItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByPurchaseOrder lists the items attached to a purchase order and
// locks them for update
func (r *GormOrderItemRepository) FindByPurchaseOrder(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]procurement.OrderItem, error) {
	var items []procurement.OrderItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, purchaseOrderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save updates one item. The owning order moves to a new version so a copy
// of it read earlier can no longer overwrite the item.
func (r *GormOrderItemRepository) Save(ctx context.Context, item *procurement.OrderItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Save(item).Error; err != nil {
		return err
	}
	return db.Model(&procurement.CustomerOrder{}).
		Where("tenant_id = ? AND id = ?", item.TenantID, item.OrderID).
		UpdateColumn("version", gorm.Expr("version + 1")).Error
}

// GormManualOverrideRepository implements ManualOverrideRepository using GORM
type GormManualOverrideRepository struct {
	db *gorm.DB
}

// NewGormManualOverrideRepository creates a new GormManualOverrideRepository
func NewGormManualOverrideRepository(db *gorm.DB) *GormManualOverrideRepository {
	return &GormManualOverrideRepository{db: db}
}

// FindByIDForTenant finds an override by ID
func (r *GormManualOverrideRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.ManualOverride, error) {
	var override procurement.ManualOverride
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&override).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &override, nil
}

// FindByOrderItem finds the override of an item
func (r *GormManualOverrideRepository) FindByOrderItem(ctx context.Context, tenantID, orderItemID uuid.UUID) (*procurement.ManualOverride, error) {
	var override procurement.ManualOverride
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_item_id = ?", tenantID, orderItemID).
		First(&override).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &override, nil
}

// FindAll lists the overrides of a tenant, newest first
func (r *GormManualOverrideRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]procurement.ManualOverride, error) {
	var overrides []procurement.ManualOverride
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

// Save creates or updates an override
func (r *GormManualOverrideRepository) Save(ctx context.Context, override *procurement.ManualOverride) error {
	return r.db.WithContext(ctx).Save(override).Error
}

// Delete removes an override
func (r *GormManualOverrideRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&procurement.ManualOverride{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ procurement.CustomerOrderRepository  = (*GormCustomerOrderRepository)(nil)
	_ procurement.OrderItemRepository      = (*GormOrderItemRepository)(nil)
	_ procurement.ManualOverrideRepository = (*GormManualOverrideRepository)(nil)
)
