package persistence_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/persistence"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

var stockColumns = []string{"id", "tenant_id", "warehouse_id", "product_id", "quantity", "reserved", "available", "unit_price"}

func TestStockLinkRepository_FindForUpdateLocksRow(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormStockLinkRepository(m.DB)
	tenantID, warehouseID, productID := uuid.New(), uuid.New(), uuid.New()

	m.Mock.ExpectQuery(`SELECT \* FROM "stock_links" WHERE .*tenant_id = \$1 AND warehouse_id = \$2 AND product_id = \$3.* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(stockColumns).
			AddRow(uuid.New(), tenantID, warehouseID, productID, "10", "4", "6", "100"))

	link, err := repo.FindByWarehouseProductForUpdate(context.Background(), tenantID, warehouseID, productID)
	require.NoError(t, err)
	assert.Equal(t, "6", link.Available.String())
	m.ExpectationsWereMet(t)
}

func TestStockLinkRepository_PlainReadDoesNotLock(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormStockLinkRepository(m.DB)

	m.Mock.ExpectQuery(`SELECT \* FROM "stock_links" WHERE [^F]*$`).
		WillReturnRows(sqlmock.NewRows(stockColumns))

	_, err := repo.FindByWarehouseProduct(context.Background(), uuid.New(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	m.ExpectationsWereMet(t)
}

func TestStockLinkRepository_FindByProductForUpdate(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormStockLinkRepository(m.DB)
	tenantID, productID := uuid.New(), uuid.New()
	w1, w2 := uuid.MustParse("00000000-0000-0000-0000-000000000001"), uuid.MustParse("00000000-0000-0000-0000-000000000002")

	// active warehouses only, locked in warehouse order
	m.Mock.ExpectQuery(`SELECT \* FROM "stock_links" WHERE .*warehouse_id IN \(SELECT .*id.* FROM "warehouses" WHERE .*status = .*\).* ORDER BY warehouse_id ASC FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(stockColumns).
			AddRow(uuid.New(), tenantID, w1, productID, "5", "0", "5", "90").
			AddRow(uuid.New(), tenantID, w2, productID, "3", "1", "2", "95"))

	links, err := repo.FindByProductForUpdate(context.Background(), tenantID, productID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, w1, links[0].WarehouseID)
	m.ExpectationsWereMet(t)
}
