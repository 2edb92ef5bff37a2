package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDForTenant finds a product by ID within a tenant
func (r *GormProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindBySKUs finds products by normalized SKU
func (r *GormProductRepository) FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]catalog.Product, error) {
	if len(skus) == 0 {
		return []catalog.Product{}, nil
	}
	normalized := make([]string, len(skus))
	for i, s := range skus {
		normalized[i] = catalog.NormalizeSKU(s)
	}
	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku IN ?", tenantID, normalized).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindActiveIDs lists the IDs of all active products of a tenant
func (r *GormProductRepository) FindActiveIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("tenant_id = ? AND status = ?", tenantID, catalog.ProductStatusActive).
		Order("sku ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// GormSupplierOfferRepository implements SupplierOfferRepository using GORM
type GormSupplierOfferRepository struct {
	db *gorm.DB
}

// NewGormSupplierOfferRepository creates a new GormSupplierOfferRepository
func NewGormSupplierOfferRepository(db *gorm.DB) *GormSupplierOfferRepository {
	return &GormSupplierOfferRepository{db: db}
}

// FindByProduct lists every offer for a product, available or not
func (r *GormSupplierOfferRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]catalog.SupplierOffer, error) {
	var offers []catalog.SupplierOffer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("supplier_id ASC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// FindByProducts lists offers for several products
func (r *GormSupplierOfferRepository) FindByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]catalog.SupplierOffer, error) {
	if len(productIDs) == 0 {
		return []catalog.SupplierOffer{}, nil
	}
	var offers []catalog.SupplierOffer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id IN ?", tenantID, productIDs).
		Order("product_id ASC").Order("supplier_id ASC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// FindBySupplier lists every offer of a supplier
func (r *GormSupplierOfferRepository) FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) ([]catalog.SupplierOffer, error) {
	var offers []catalog.SupplierOffer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID).
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// Save creates or updates an offer
func (r *GormSupplierOfferRepository) Save(ctx context.Context, offer *catalog.SupplierOffer) error {
	return r.db.WithContext(ctx).Save(offer).Error
}

// GormBrandContentSourceRepository implements BrandContentSourceRepository using GORM
type GormBrandContentSourceRepository struct {
	db *gorm.DB
}

// NewGormBrandContentSourceRepository creates a new GormBrandContentSourceRepository
func NewGormBrandContentSourceRepository(db *gorm.DB) *GormBrandContentSourceRepository {
	return &GormBrandContentSourceRepository{db: db}
}

// FindAll lists every brand mapping of a tenant
func (r *GormBrandContentSourceRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]catalog.BrandContentSource, error) {
	var sources []catalog.BrandContentSource
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("brand ASC").
		Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// FindByBrand finds the mapping for a normalized brand
func (r *GormBrandContentSourceRepository) FindByBrand(ctx context.Context, tenantID uuid.UUID, brand string) (*catalog.BrandContentSource, error) {
	var source catalog.BrandContentSource
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND brand = ?", tenantID, catalog.NormalizeBrand(brand)).
		First(&source).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &source, nil
}

// Save creates or replaces the mapping for a brand. An existing mapping for
// the same brand keeps its ID and gets the new supplier.
func (r *GormBrandContentSourceRepository) Save(ctx context.Context, source *catalog.BrandContentSource) error {
	existing, err := r.FindByBrand(ctx, source.TenantID, source.Brand)
	switch {
	case err == nil:
		source.ID = existing.ID
		source.CreatedAt = existing.CreatedAt
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}
	return r.db.WithContext(ctx).Save(source).Error
}

// GormSyncRunRepository implements SyncRunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// FindByIDForTenant finds a run by ID within a tenant
func (r *GormSyncRunRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.SyncRun, error) {
	var run catalog.SyncRun
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

// FindBySupplier lists the latest runs of a supplier, newest first
func (r *GormSyncRunRepository) FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, limit int) ([]catalog.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []catalog.SyncRun
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Save creates or updates a run
func (r *GormSyncRunRepository) Save(ctx context.Context, run *catalog.SyncRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

var (
	_ catalog.ProductRepository            = (*GormProductRepository)(nil)
	_ catalog.SupplierOfferRepository      = (*GormSupplierOfferRepository)(nil)
	_ catalog.BrandContentSourceRepository = (*GormBrandContentSourceRepository)(nil)
	_ catalog.SyncRunRepository            = (*GormSyncRunRepository)(nil)
)
