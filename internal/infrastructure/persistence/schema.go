package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Models lists every persisted type in dependency order
func Models() []any {
	return []any{
		&partner.Supplier{},
		&partner.Warehouse{},
		&catalog.Product{},
		&catalog.SupplierOffer{},
		&catalog.BrandContentSource{},
		&catalog.SyncRun{},
		&inventory.StockLink{},
		&inventory.StockMovement{},
		&marketplace.SalesChannel{},
		&marketplace.PriceLink{},
		&procurement.CustomerOrder{},
		&procurement.OrderItem{},
		&procurement.ManualOverride{},
		&procurement.SupplierPurchaseOrder{},
		&procurement.PurchaseOrderLine{},
		&procurement.Run{},
		&shared.OutboxEntry{},
	}
}

// tenantUniqueIndexes are the per-tenant natural keys. The tenant column is
// promoted from an embedded struct, so these are declared here instead of
// in struct tags.
var tenantUniqueIndexes = []struct {
	name, table, column string
}{
	{"idx_supplier_tenant_code", "suppliers", "code"},
	{"idx_warehouse_tenant_code", "warehouses", "code"},
	{"idx_product_tenant_sku", "products", "sku"},
	{"idx_brand_source_tenant_brand", "brand_content_sources", "brand"},
	{"idx_channel_tenant_code", "sales_channels", "code"},
}

// AutoMigrate creates or updates the schema from the model definitions.
// Production deployments use the SQL migrations; this serves sqlite and tests.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, idx := range tenantUniqueIndexes {
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (tenant_id, %s)", idx.name, idx.table, idx.column)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
