package marketplace

import (
	"context"

	"github.com/google/uuid"
)

// SalesChannelRepository defines the interface for sales channel persistence
type SalesChannelRepository interface {
	// FindByIDForTenant finds a channel by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SalesChannel, error)

	// FindActive lists active channels of a tenant, or of all tenants when tenantID is uuid.Nil
	FindActive(ctx context.Context, tenantID uuid.UUID) ([]SalesChannel, error)

	// Save creates or updates a channel
	Save(ctx context.Context, channel *SalesChannel) error
}

// PriceLinkRepository defines the interface for price link persistence
type PriceLinkRepository interface {
	// FindByProductChannel finds the link of a product on a channel
	FindByProductChannel(ctx context.Context, tenantID, productID, channelID uuid.UUID) (*PriceLink, error)

	// FindByProduct lists the links of a product across channels
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]PriceLink, error)

	// Save creates or updates a link
	Save(ctx context.Context, link *PriceLink) error
}
