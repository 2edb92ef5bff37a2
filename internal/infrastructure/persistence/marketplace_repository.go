package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
)

type GormSalesChannelRepository struct {
	db *gorm.DB
}

func NewGormSalesChannelRepository(db *gorm.DB) *GormSalesChannelRepository {
	return &GormSalesChannelRepository{db: db}
}

func (r *GormSalesChannelRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*marketplace.SalesChannel, error) {
	return first[marketplace.SalesChannel](tenantQuery(ctx, r.db, tenantID).Where("id = ?", id))
}

// FindActive lists active channels of a tenant, or of all tenants when
// tenantID is uuid.Nil
func (r *GormSalesChannelRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]marketplace.SalesChannel, error) {
	q := r.db.WithContext(ctx)
	if tenantID != uuid.Nil {
		q = q.Where("tenant_id = ?", tenantID)
	}
	return all[marketplace.SalesChannel](q.Where("status = ?", marketplace.SalesChannelStatusActive).Order("code"))
}

func (r *GormSalesChannelRepository) Save(ctx context.Context, channel *marketplace.SalesChannel) error {
	return r.db.WithContext(ctx).Save(channel).Error
}

// GormPriceLinkRepository stores the last price pushed per product and channel
type GormPriceLinkRepository struct {
	db *gorm.DB
}

func NewGormPriceLinkRepository(db *gorm.DB) *GormPriceLinkRepository {
	return &GormPriceLinkRepository{db: db}
}

func (r *GormPriceLinkRepository) FindByProductChannel(ctx context.Context, tenantID, productID, channelID uuid.UUID) (*marketplace.PriceLink, error) {
	return first[marketplace.PriceLink](tenantQuery(ctx, r.db, tenantID).
		Where("product_id = ? AND channel_id = ?", productID, channelID))
}

func (r *GormPriceLinkRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]marketplace.PriceLink, error) {
	return all[marketplace.PriceLink](tenantQuery(ctx, r.db, tenantID).Where("product_id = ?", productID))
}

func (r *GormPriceLinkRepository) Save(ctx context.Context, link *marketplace.PriceLink) error {
	return r.db.WithContext(ctx).Save(link).Error
}

var (
	_ marketplace.SalesChannelRepository = (*GormSalesChannelRepository)(nil)
	_ marketplace.PriceLinkRepository    = (*GormPriceLinkRepository)(nil)
)
