package catalogsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/cache"
	"github.com/vde76ru/module-sub000/internal/infrastructure/storage"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

type syncFixture struct {
	env       *testutil.Env
	tenantID  uuid.UUID
	supplier  *partner.Supplier
	warehouse *partner.Warehouse
	conn      *testutil.FakeConnector
	ledger    *appinventory.StockLedger
	locker    *cache.InMemoryRunLocker
	archive   *storage.MemorySnapshotArchive
	svc       *Service
}

func newSyncFixture(t *testing.T, rows ...integration.SupplierProduct) *syncFixture {
	t.Helper()
	env := testutil.NewEnv(t)
	tenantID := testutil.TestTenantID()
	supplier, warehouse := env.SeedSupplier(t, tenantID, "ACME")

	conn := testutil.NewFakeConnector(rows...)
	registry := testutil.NewFakeRegistry()
	registry.Bind(supplier.ID, conn)

	locker := cache.NewInMemoryRunLocker()
	t.Cleanup(func() { _ = locker.Close() })
	archive := storage.NewMemorySnapshotArchive()
	ledger := appinventory.NewStockLedger(env.Scope, nil)

	svc := NewService(env.Scope, registry, ledger, locker,
		Config{PageSize: 2, Locale: language.Russian}, nil, WithSnapshotArchive(archive))
	return &syncFixture{
		env:       env,
		tenantID:  tenantID,
		supplier:  supplier,
		warehouse: warehouse,
		conn:      conn,
		ledger:    ledger,
		locker:    locker,
		archive:   archive,
		svc:       svc,
	}
}

func (f *syncFixture) sync(t *testing.T) *catalog.SyncRun {
	t.Helper()
	run, err := f.svc.Sync(context.Background(), f.tenantID, f.supplier.ID, TriggerManual)
	require.NoError(t, err)
	return run
}

func (f *syncFixture) product(t *testing.T, sku string) *catalog.Product {
	t.Helper()
	found, err := f.env.Repos().Products().FindBySKUs(context.Background(), f.tenantID, []string{sku})
	require.NoError(t, err)
	require.Len(t, found, 1, "product %s", sku)
	return &found[0]
}

func (f *syncFixture) offer(t *testing.T, externalID string) catalog.SupplierOffer {
	t.Helper()
	offers, err := f.env.Repos().Offers().FindBySupplier(context.Background(), f.tenantID, f.supplier.ID)
	require.NoError(t, err)
	for _, o := range offers {
		if o.ExternalID == externalID {
			return o
		}
	}
	require.Failf(t, "offer not found", "external id %s", externalID)
	return catalog.SupplierOffer{}
}

func (f *syncFixture) stock(t *testing.T, productID uuid.UUID) string {
	t.Helper()
	link, err := f.ledger.Stock(context.Background(), f.tenantID, f.warehouse.ID, productID)
	require.NoError(t, err)
	return link.Quantity.String()
}

func defaultRows() []integration.SupplierProduct {
	return []integration.SupplierProduct{
		testutil.SupplierRow("1", "cab-1", "Rexant", "100,50", "10"),
		testutil.SupplierRow("2", "cab-2", "Rexant", "200", "5"),
		testutil.SupplierRow("3", "lamp-1", "Gauss", "75", "0"),
	}
}

func TestSync_CreatesCatalogAndStock(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)

	run := f.sync(t)

	assert.Equal(t, catalog.SyncRunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 3, run.Created)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, 2, f.conn.Calls("GetProducts"), "three rows over page size two")

	p := f.product(t, "CAB-1")
	assert.Equal(t, "Item cab-1", p.Name)
	o := f.offer(t, "1")
	assert.Equal(t, "100.5", o.Cost.String())
	assert.True(t, o.Available)
	assert.Equal(t, "10", f.stock(t, p.ID))

	require.NotEmpty(t, run.SnapshotKey)
	assert.Equal(t, []string{run.SnapshotKey}, f.archive.Keys())

	stored, err := f.svc.Run(context.Background(), f.tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.SyncRunStatusCompleted, stored.Status)
	assert.Equal(t, 1, f.env.CountOutbox(t, catalog.EventTypeSyncRunFinished))
	assert.Equal(t, 3, f.env.CountOutbox(t, catalog.EventTypeProductCreated))

	supplier, err := f.env.Repos().Suppliers().FindByIDForTenant(context.Background(), f.tenantID, f.supplier.ID)
	require.NoError(t, err)
	assert.NotNil(t, supplier.LastSyncAt)
}

func TestSync_RepeatIsIdempotent(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.sync(t)
	p := f.product(t, "CAB-1")
	history, err := f.ledger.History(context.Background(), f.tenantID, f.warehouse.ID, p.ID, 10)
	require.NoError(t, err)
	movements := len(history)

	run := f.sync(t)

	assert.Equal(t, 3, run.Unchanged)
	assert.Equal(t, 0, run.Created)
	assert.Equal(t, 0, run.Updated)
	history, err = f.ledger.History(context.Background(), f.tenantID, f.warehouse.ID, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, movements, "unchanged stock writes no movement")
	assert.Equal(t, 3, f.env.CountOutbox(t, catalog.EventTypeSupplierOfferChanged))
}

func TestSync_UpdatesChangedRows(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.sync(t)

	rows := defaultRows()
	rows[0].Price = "110"
	rows[1].Quantity = "7"
	f.conn.SetProducts(rows...)
	run := f.sync(t)

	assert.Equal(t, 2, run.Updated)
	assert.Equal(t, 1, run.Unchanged)
	assert.Equal(t, "110", f.offer(t, "1").Cost.String())
	assert.Equal(t, "7", f.stock(t, f.product(t, "CAB-2").ID))
}

func TestSync_RetiresMissingOffers(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.sync(t)

	f.conn.SetProducts(defaultRows()[1:]...)
	run := f.sync(t)

	assert.Equal(t, 1, run.Retired)
	o := f.offer(t, "1")
	assert.False(t, o.Available)
	assert.True(t, o.Quantity.IsZero())
	p := f.product(t, "CAB-1")
	assert.Equal(t, "0", f.stock(t, p.ID))
	assert.True(t, p.IsActive(), "products survive retirement")

	run = f.sync(t)
	assert.Equal(t, 0, run.Retired, "already retired offers are not counted again")
}

func TestSync_EmptyCatalogAborts(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.sync(t)

	f.conn.SetProducts()
	run, err := f.svc.Sync(context.Background(), f.tenantID, f.supplier.ID, TriggerSchedule)

	require.Error(t, err)
	assert.Equal(t, shared.CodeReconciliation, shared.CodeOf(err))
	require.NotNil(t, run)
	assert.Equal(t, catalog.SyncRunStatusFailed, run.Status)
	assert.True(t, f.offer(t, "1").Available)
}

func TestSync_PullFailureAbortsRun(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.conn.FailProducts(integration.NewSupplierError(integration.ErrorKindServer, "acme", "GetProducts", "boom", nil))

	run, err := f.svc.Sync(context.Background(), f.tenantID, f.supplier.ID, TriggerSchedule)

	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrSupplierServer))
	assert.Equal(t, catalog.SyncRunStatusFailed, run.Status)
	assert.Contains(t, run.FailReason, "boom")

	runs, err := f.svc.Runs(context.Background(), f.tenantID, f.supplier.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, catalog.SyncRunStatusFailed, runs[0].Status)
}

func TestSync_BadRowsMakeRunPartial(t *testing.T) {
	rows := defaultRows()
	rows = append(rows,
		testutil.SupplierRow("4", "", "Rexant", "10", "1"),
		testutil.SupplierRow("2", "cab-2-dup", "Rexant", "10", "1"),
	)
	f := newSyncFixture(t, rows...)

	run := f.sync(t)

	assert.Equal(t, catalog.SyncRunStatusPartial, run.Status)
	assert.Equal(t, 5, run.Processed)
	assert.Equal(t, 3, run.Created)
	assert.Equal(t, 2, run.Failed)
	require.Len(t, run.Errors, 2)
	assert.Equal(t, "4", run.Errors[0].Ref)
}

func TestSync_BrandMasterOwnsContent(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.sync(t)

	rows := defaultRows()
	rows[0].Name = "Кабель ВВГ 3x1.5"
	rows[2].Name = "Лампа"
	f.conn.SetProducts(rows...)

	src, err := catalog.NewBrandContentSource(f.tenantID, "rexant", f.supplier.ID)
	require.NoError(t, err)
	require.NoError(t, f.env.Repos().ContentSources().Save(context.Background(), src))

	run := f.sync(t)

	assert.Equal(t, 2, run.Updated, "both Rexant products adopt the master")
	p := f.product(t, "CAB-1")
	assert.Equal(t, "Кабель ВВГ 3x1.5", p.Name)
	require.NotNil(t, p.ContentSupplierID)
	assert.Equal(t, f.supplier.ID, *p.ContentSupplierID)
	assert.Equal(t, "Item lamp-1", f.product(t, "LAMP-1").Name, "no master for Gauss")
}

func TestSync_MasterOfAnotherBrandKeepsOut(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.sync(t)
	ctx := context.Background()

	other, _ := f.env.SeedSupplier(t, f.tenantID, "OTHER")
	rexant, err := catalog.NewBrandContentSource(f.tenantID, "rexant", other.ID)
	require.NoError(t, err)
	require.NoError(t, f.env.Repos().ContentSources().Save(ctx, rexant))
	gauss, err := catalog.NewBrandContentSource(f.tenantID, "gauss", f.supplier.ID)
	require.NoError(t, err)
	require.NoError(t, f.env.Repos().ContentSources().Save(ctx, gauss))

	// the Gauss master relabels a Rexant product in its feed
	rows := defaultRows()
	rows[0].Brand = "Gauss"
	rows[0].Name = "Лампа"
	f.conn.SetProducts(rows...)
	f.sync(t)

	p := f.product(t, "CAB-1")
	assert.Equal(t, "Rexant", p.Brand)
	assert.Equal(t, "Item cab-1", p.Name)
	assert.Nil(t, p.ContentSupplierID)
}

func TestSync_ConcurrentRunRejected(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	lock, err := f.locker.TryLock(context.Background(), LockKey(f.tenantID, f.supplier.ID), time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Sync(context.Background(), f.tenantID, f.supplier.ID, TriggerManual)
	assert.ErrorIs(t, err, shared.ErrRunInProgress)

	require.NoError(t, lock.Unlock(context.Background()))
	f.sync(t)
}

func TestSync_InactiveSupplier(t *testing.T) {
	f := newSyncFixture(t, defaultRows()...)
	f.supplier.Deactivate()
	require.NoError(t, f.env.Repos().Suppliers().Save(context.Background(), f.supplier))

	_, err := f.svc.Sync(context.Background(), f.tenantID, f.supplier.ID, TriggerManual)
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
	assert.Zero(t, f.conn.Calls("GetProducts"))
}

func TestSnapshotKey(t *testing.T) {
	run := catalog.NewSyncRun(uuid.MustParse("11111111-1111-1111-1111-111111111111"), uuid.MustParse("22222222-2222-2222-2222-222222222222"), TriggerManual)
	run.StartedAt = time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222/2024/03/05/"+run.ID.String()+".json.gz", SnapshotKey(run))
}
