package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByIDForTenant finds a product by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Product, error)

	// FindBySKUs finds products by normalized SKU
	FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]Product, error)

	// FindActiveIDs lists the IDs of all active products of a tenant
	FindActiveIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}

// SupplierOfferRepository defines the interface for supplier offer persistence
type SupplierOfferRepository interface {
	// FindByProduct lists every offer for a product, available or not
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]SupplierOffer, error)

	// FindByProducts lists offers for several products
	FindByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) ([]SupplierOffer, error)

	// FindBySupplier lists every offer of a supplier
	FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) ([]SupplierOffer, error)

	// Save creates or updates an offer
	Save(ctx context.Context, offer *SupplierOffer) error
}

// BrandContentSourceRepository defines the interface for brand source persistence
type BrandContentSourceRepository interface {
	// FindAll lists every brand mapping of a tenant
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]BrandContentSource, error)

	// FindByBrand finds the mapping for a normalized brand
	FindByBrand(ctx context.Context, tenantID uuid.UUID, brand string) (*BrandContentSource, error)

	// Save creates or replaces the mapping for a brand
	Save(ctx context.Context, source *BrandContentSource) error
}

// SyncRunRepository defines the interface for sync run persistence
type SyncRunRepository interface {
	// FindByIDForTenant finds a run by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SyncRun, error)

	// FindBySupplier lists the latest runs of a supplier, newest first
	FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, limit int) ([]SyncRun, error)

	// Save creates or updates a run
	Save(ctx context.Context, run *SyncRun) error
}
