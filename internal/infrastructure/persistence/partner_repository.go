package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/domain/partner"
)

type GormSupplierRepository struct {
	db *gorm.DB
}

func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

func (r *GormSupplierRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	return first[partner.Supplier](tenantQuery(ctx, r.db, tenantID).Where("id = ?", id))
}

func (r *GormSupplierRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]partner.Supplier, error) {
	if len(ids) == 0 {
		return []partner.Supplier{}, nil
	}
	return all[partner.Supplier](tenantQuery(ctx, r.db, tenantID).Where("id IN ?", ids))
}

// FindActive spans every tenant when tenantID is uuid.Nil; the scheduled
// catalog sync uses that to fan out.
func (r *GormSupplierRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]partner.Supplier, error) {
	q := r.db.WithContext(ctx)
	if tenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", tenantID)
	}
	return all[partner.Supplier](q.Where("status = ?", partner.SupplierStatusActive).Order("code"))
}

func (r *GormSupplierRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]partner.Supplier, error) {
	return all[partner.Supplier](tenantQuery(ctx, r.db, tenantID).Order("code"))
}

func (r *GormSupplierRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	return exists[partner.Supplier](tenantQuery(ctx, r.db, tenantID).Where("code = ?", partner.NormalizeCode(code)))
}

func (r *GormSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

type GormWarehouseRepository struct {
	db *gorm.DB
}

func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// byPriority orders warehouses highest priority first, then by code
func byPriority(q *gorm.DB) *gorm.DB {
	return q.Order("priority DESC").Order("code")
}

func (r *GormWarehouseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Warehouse, error) {
	return first[partner.Warehouse](tenantQuery(ctx, r.db, tenantID).Where("id = ?", id))
}

func (r *GormWarehouseRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]partner.Warehouse, error) {
	return all[partner.Warehouse](byPriority(tenantQuery(ctx, r.db, tenantID).
		Where("status = ?", partner.WarehouseStatusActive)))
}

// FindVirtualBySupplier returns the drop-ship warehouse that mirrors a
// supplier's own stock
func (r *GormWarehouseRepository) FindVirtualBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (*partner.Warehouse, error) {
	return first[partner.Warehouse](tenantQuery(ctx, r.db, tenantID).
		Where("supplier_id = ? AND type = ?", supplierID, partner.WarehouseTypeVirtual))
}

func (r *GormWarehouseRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]partner.Warehouse, error) {
	return all[partner.Warehouse](byPriority(tenantQuery(ctx, r.db, tenantID)))
}

func (r *GormWarehouseRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	return exists[partner.Warehouse](tenantQuery(ctx, r.db, tenantID).Where("code = ?", partner.NormalizeCode(code)))
}

func (r *GormWarehouseRepository) Save(ctx context.Context, warehouse *partner.Warehouse) error {
	return r.db.WithContext(ctx).Save(warehouse).Error
}

var (
	_ partner.SupplierRepository  = (*GormSupplierRepository)(nil)
	_ partner.WarehouseRepository = (*GormWarehouseRepository)(nil)
)
