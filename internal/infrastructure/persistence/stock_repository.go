package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// forUpdate takes row locks on the selected rows until the transaction
// ends. Dialects without row locking (sqlite) drop the clause and rely on
// their single-writer transactions.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GormStockLinkRepository implements StockLinkRepository using GORM
type GormStockLinkRepository struct {
	db *gorm.DB
}

// NewGormStockLinkRepository creates a new GormStockLinkRepository
func NewGormStockLinkRepository(db *gorm.DB) *GormStockLinkRepository {
	return &GormStockLinkRepository{db: db}
}

// FindByWarehouseProduct finds the link without locking
func (r *GormStockLinkRepository) FindByWarehouseProduct(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockLink, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, warehouseID, productID)
}

// FindByWarehouseProductForUpdate finds and locks the link
func (r *GormStockLinkRepository) FindByWarehouseProductForUpdate(ctx context.Context, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockLink, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, warehouseID, productID)
}

func (r *GormStockLinkRepository) findOne(db *gorm.DB, tenantID, warehouseID, productID uuid.UUID) (*inventory.StockLink, error) {
	var link inventory.StockLink
	if err := db.
		Where("tenant_id = ? AND warehouse_id = ? AND product_id = ?", tenantID, warehouseID, productID).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// FindByProductForUpdate locks every link of a product held in an active
// warehouse. Rows are locked in warehouse order so concurrent reservations
// of the same product cannot deadlock.
func (r *GormStockLinkRepository) FindByProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.StockLink, error) {
	active := r.db.Model(&partner.Warehouse{}).
		Select("id").
		Where("tenant_id = ? AND status = ?", tenantID, partner.WarehouseStatusActive)

	var links []inventory.StockLink
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND product_id = ? AND warehouse_id IN (?)", tenantID, productID, active).
		Order("warehouse_id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// FindByProduct lists the links of a product without locking
func (r *GormStockLinkRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.StockLink, error) {
	var links []inventory.StockLink
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("warehouse_id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// Save creates or updates a link
func (r *GormStockLinkRepository) Save(ctx context.Context, link *inventory.StockLink) error {
	return r.db.WithContext(ctx).Save(link).Error
}

// GormStockMovementRepository implements StockMovementRepository using GORM.
// Movements are insert-only.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create inserts a movement record
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByWarehouseProduct lists movements touching a warehouse and product, newest first
func (r *GormStockMovementRepository) FindByWarehouseProduct(ctx context.Context, tenantID, warehouseID, productID uuid.UUID, limit int) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Where("from_warehouse_id = ? OR to_warehouse_id = ?", warehouseID, warehouseID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByOrderRef lists movements recorded against an order reference
func (r *GormStockMovementRepository) FindByOrderRef(ctx context.Context, tenantID uuid.UUID, orderRef string) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_ref = ?", tenantID, orderRef).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

var (
	_ inventory.StockLinkRepository     = (*GormStockLinkRepository)(nil)
	_ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
)
