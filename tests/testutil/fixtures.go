package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// SeedSupplier stores an active fake-connector supplier with its virtual warehouse
func (e *Env) SeedSupplier(t *testing.T, tenantID uuid.UUID, code string) (*partner.Supplier, *partner.Warehouse) {
	t.Helper()
	ctx := context.Background()

	s, err := partner.NewSupplier(tenantID, code, code+" Ltd", FakeConnectorType, partner.ConnectorSettings{Currency: "RUB"})
	require.NoError(t, err)
	w, err := partner.NewVirtualWarehouse(tenantID, s)
	require.NoError(t, err)
	s.AttachVirtualWarehouse(w.ID)

	require.NoError(t, e.Repos().Suppliers().Save(ctx, s))
	require.NoError(t, e.Repos().Warehouses().Save(ctx, w))
	return s, w
}

// SeedWarehouse stores an active physical warehouse
func (e *Env) SeedWarehouse(t *testing.T, tenantID uuid.UUID, code string, priority int) *partner.Warehouse {
	t.Helper()
	w, err := partner.NewPhysicalWarehouse(tenantID, code, code, priority)
	require.NoError(t, err)
	require.NoError(t, e.Repos().Warehouses().Save(context.Background(), w))
	return w
}

// SeedProduct stores an active product
func (e *Env) SeedProduct(t *testing.T, tenantID uuid.UUID, sku string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(tenantID, sku, catalog.ProductContent{Name: sku})
	require.NoError(t, err)
	p.ClearDomainEvents()
	require.NoError(t, e.Repos().Products().Save(context.Background(), p))
	return p
}

// SeedOffer stores an available offer priced in roubles
func (e *Env) SeedOffer(t *testing.T, product *catalog.Product, supplier *partner.Supplier, cost, quantity string) *catalog.SupplierOffer {
	t.Helper()
	o, err := catalog.NewSupplierOffer(product.TenantID, product.ID, supplier.ID, "EXT-"+product.SKU, catalog.OfferQuote{
		ExternalSKU: product.SKU,
		Cost:        decimal.RequireFromString(cost),
		Currency:    valueobject.RUB,
		Quantity:    decimal.RequireFromString(quantity),
	})
	require.NoError(t, err)
	o.ClearDomainEvents()
	require.NoError(t, e.Repos().Offers().Save(context.Background(), o))
	return o
}

// SeedStock sets the on-hand quantity of a product in a warehouse
func (e *Env) SeedStock(t *testing.T, tenantID, warehouseID, productID uuid.UUID, quantity string) *inventory.StockLink {
	t.Helper()
	link, err := inventory.NewStockLink(tenantID, warehouseID, productID)
	require.NoError(t, err)
	_, err = link.SetQuantity(decimal.RequireFromString(quantity), nil)
	require.NoError(t, err)
	link.ClearDomainEvents()
	require.NoError(t, e.Repos().StockLinks().Save(context.Background(), link))
	return link
}

// SupplierRow builds a raw catalog row the way connectors deliver it
func SupplierRow(externalID, sku, brand, price, quantity string) integration.SupplierProduct {
	return integration.SupplierProduct{
		ExternalID: externalID,
		SKU:        sku,
		Name:       "Item " + sku,
		Brand:      brand,
		Price:      price,
		Currency:   "RUB",
		Quantity:   quantity,
	}
}
