package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/vde76ru/module-sub000/internal/application/inventory"
	"github.com/vde76ru/module-sub000/internal/application/pricing"
	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/marketplace"
	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
	"github.com/vde76ru/module-sub000/internal/infrastructure/cache"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

type procurementFixture struct {
	env        *testutil.Env
	tenantID   uuid.UUID
	channel    *marketplace.SalesChannel
	supplier   *partner.Supplier
	supplierWH *partner.Warehouse
	conn       *testutil.FakeConnector
	ledger     *appinventory.StockLedger
	locker     *cache.InMemoryRunLocker
	svc        *Service
}

func newProcurementFixture(t *testing.T, autoConfirm bool) *procurementFixture {
	t.Helper()
	env := testutil.NewEnv(t)
	tenantID := testutil.TestTenantID()
	supplier, supplierWH := env.SeedSupplier(t, tenantID, "ACME")

	conn := testutil.NewFakeConnector()
	registry := testutil.NewFakeRegistry()
	registry.Bind(supplier.ID, conn)

	channel, err := marketplace.NewSalesChannel(tenantID, "ozon", "Ozon", "ozon", marketplace.DefaultPricingRules(valueobject.RUB))
	require.NoError(t, err)
	require.NoError(t, channel.SetProcurementSchedule("", autoConfirm))
	require.NoError(t, env.Repos().Channels().Save(context.Background(), channel))

	rates, err := pricing.NewStaticRates("RUB", map[string]decimal.Decimal{"USD": decimal.NewFromInt(90)})
	require.NoError(t, err)
	locker := cache.NewInMemoryRunLocker()
	t.Cleanup(func() { _ = locker.Close() })
	ledger := appinventory.NewStockLedger(env.Scope, nil)

	return &procurementFixture{
		env:        env,
		tenantID:   tenantID,
		channel:    channel,
		supplier:   supplier,
		supplierWH: supplierWH,
		conn:       conn,
		ledger:     ledger,
		locker:     locker,
		svc:        NewService(env.Scope, registry, ledger, locker, rates, Config{}, nil),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}

// productWithOffer seeds a product offered by the fixture supplier at 100
func (f *procurementFixture) productWithOffer(t *testing.T, sku string) *catalog.Product {
	t.Helper()
	p := f.env.SeedProduct(t, f.tenantID, sku)
	f.env.SeedOffer(t, p, f.supplier, "100", "50")
	return p
}

func (f *procurementFixture) ingest(t *testing.T, ref string, lines ...procurement.OrderLineInput) *procurement.CustomerOrder {
	t.Helper()
	order, err := f.svc.IngestOrder(context.Background(), f.tenantID, IngestOrderRequest{
		ChannelID:   f.channel.ID,
		ExternalRef: ref,
		Lines:       lines,
	})
	require.NoError(t, err)
	return order
}

func line(productID uuid.UUID, qty string) procurement.OrderLineInput {
	return procurement.OrderLineInput{ProductID: productID, Quantity: dec(qty), UnitPrice: dec("150")}
}

func (f *procurementFixture) run(t *testing.T) *procurement.Run {
	t.Helper()
	run, err := f.svc.Run(context.Background(), f.tenantID, f.channel.ID, procurement.TriggerManual)
	require.NoError(t, err)
	return run
}

func (f *procurementFixture) items(t *testing.T, ids ...uuid.UUID) map[uuid.UUID]procurement.OrderItem {
	t.Helper()
	items, err := f.env.Repos().OrderItems().FindByIDs(context.Background(), f.tenantID, ids)
	require.NoError(t, err)
	out := make(map[uuid.UUID]procurement.OrderItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

func (f *procurementFixture) batch(t *testing.T, run *procurement.Run) []procurement.SupplierPurchaseOrder {
	t.Helper()
	orders, err := f.svc.PurchaseOrdersOfRun(context.Background(), f.tenantID, run.ID)
	require.NoError(t, err)
	return orders
}

func TestRun_MergesItemsIntoDraft(t *testing.T) {
	f := newProcurementFixture(t, false)
	product := f.productWithOffer(t, "CAB-1")
	first := f.ingest(t, "MP-1", line(product.ID, "3"))
	second := f.ingest(t, "MP-2", line(product.ID, "5"))

	run := f.run(t)
	assert.Equal(t, procurement.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Collected)
	assert.Equal(t, 2, run.Ordered)
	assert.Equal(t, 1, run.OrdersCreated)
	assert.Zero(t, run.OrdersSent)

	orders := f.batch(t, run)
	require.Len(t, orders, 1)
	po := orders[0]
	assert.Equal(t, procurement.PurchaseOrderStatusDraft, po.Status)
	assert.Equal(t, f.supplier.ID, po.SupplierID)
	require.Len(t, po.Lines, 1)
	assertDec(t, "8", po.Lines[0].Quantity)
	assertDec(t, "800", po.TotalAmount)

	items := f.items(t, first.Items[0].ID, second.Items[0].ID)
	for _, item := range items {
		assert.Equal(t, procurement.ProcurementStatusOrdered, item.ProcurementStatus)
		require.NotNil(t, item.PurchaseOrderID)
		assert.Equal(t, po.ID, *item.PurchaseOrderID)
	}
	assert.Zero(t, f.conn.Calls("CreateOrder"))
	assert.Equal(t, 1, f.env.CountOutbox(t, procurement.EventTypeProcurementRunFinished))

	again := f.run(t)
	assert.Zero(t, again.Collected, "ordered items are not collected twice")
}

func TestRun_ReservesOwnStockBeforeBuying(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	wh := f.env.SeedWarehouse(t, f.tenantID, "MSK", 10)
	stocked := f.productWithOffer(t, "CAB-1")
	missing := f.productWithOffer(t, "LAMP-1")
	f.env.SeedStock(t, f.tenantID, wh.ID, stocked.ID, "10")
	order := f.ingest(t, "MP-1", line(stocked.ID, "5"), line(missing.ID, "2"))

	run := f.run(t)
	assert.Equal(t, 2, run.Collected)
	assert.Equal(t, 1, run.Reserved)
	assert.Equal(t, 1, run.Ordered)

	po := f.batch(t, run)[0]
	require.Len(t, po.Lines, 1)
	assert.Equal(t, missing.ID, po.Lines[0].ProductID)
	assertDec(t, "2", po.Lines[0].Quantity)

	items := f.items(t, order.Items[0].ID, order.Items[1].ID)
	held := items[order.Items[0].ID]
	assert.Equal(t, procurement.ProcurementStatusNotRequired, held.ProcurementStatus)
	assert.Equal(t, procurement.FulfillmentStatusReserved, held.FulfillmentStatus)
	assertDec(t, "5", held.ReservedQuantity)
	assertDec(t, "0", held.ProcureQuantity)
	require.NotNil(t, held.ReservedWarehouseID)
	assert.Equal(t, wh.ID, *held.ReservedWarehouseID)
	bought := items[order.Items[1].ID]
	assert.Equal(t, procurement.ProcurementStatusOrdered, bought.ProcurementStatus)
	assertDec(t, "2", bought.ProcureQuantity)

	// reserving the order afterwards holds nothing more
	_, err := f.svc.ReserveOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	link, err := f.ledger.Stock(ctx, f.tenantID, wh.ID, stocked.ID)
	require.NoError(t, err)
	assertDec(t, "5", link.Reserved)
	assertDec(t, "5", link.Available)
	assert.Zero(t, f.run(t).Collected)
}

func TestRun_ShortStockIsBoughtInFull(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	wh := f.env.SeedWarehouse(t, f.tenantID, "MSK", 10)
	product := f.productWithOffer(t, "CAB-1")
	f.env.SeedStock(t, f.tenantID, wh.ID, product.ID, "3")
	f.env.SeedStock(t, f.tenantID, f.supplierWH.ID, product.ID, "50")
	order := f.ingest(t, "MP-1", line(product.ID, "5"))

	run := f.run(t)
	assert.Zero(t, run.Reserved)
	assertDec(t, "5", f.batch(t, run)[0].Lines[0].Quantity)

	item := f.items(t, order.Items[0].ID)[order.Items[0].ID]
	assert.Equal(t, procurement.ProcurementStatusOrdered, item.ProcurementStatus)
	assertDec(t, "0", item.ReservedQuantity)

	for _, id := range []uuid.UUID{wh.ID, f.supplierWH.ID} {
		link, err := f.ledger.Stock(ctx, f.tenantID, id, product.ID)
		require.NoError(t, err)
		assertDec(t, "0", link.Reserved, "supplier stock is bought, not held")
	}
}

func TestRun_AutoConfirmSends(t *testing.T) {
	f := newProcurementFixture(t, true)
	product := f.productWithOffer(t, "CAB-1")
	order := f.ingest(t, "MP-1", line(product.ID, "2"))

	run := f.run(t)
	assert.Equal(t, 1, run.OrdersSent)
	assert.Zero(t, run.OrdersFailed)

	po := f.batch(t, run)[0]
	assert.Equal(t, procurement.PurchaseOrderStatusSent, po.Status)
	assert.Equal(t, "EXT-1", po.ExternalOrderID)
	assert.Equal(t, "accepted", po.ExternalStatus)

	requests := f.conn.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, po.ID, requests[0].Reference)
	require.Len(t, requests[0].Lines, 1)
	assert.Equal(t, "EXT-CAB-1", requests[0].Lines[0].ExternalID)
	assert.Equal(t, 1, f.env.CountOutbox(t, procurement.EventTypePurchaseOrderSent))

	item := f.items(t, order.Items[0].ID)[order.Items[0].ID]
	assert.Equal(t, procurement.ProcurementStatusOrdered, item.ProcurementStatus)
}

func TestRun_SendFailureCompensates(t *testing.T) {
	f := newProcurementFixture(t, true)
	product := f.productWithOffer(t, "CAB-1")
	first := f.ingest(t, "MP-1", line(product.ID, "3"))
	second := f.ingest(t, "MP-2", line(product.ID, "5"))
	f.conn.FailOrders(integration.NewSupplierError(integration.ErrorKindServer, "ACME", "createOrder", "boom", nil))

	run := f.run(t)
	assert.Equal(t, procurement.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.OrdersFailed)
	require.Len(t, run.Errors, 1)

	po := f.batch(t, run)[0]
	assert.Equal(t, procurement.PurchaseOrderStatusError, po.Status)
	assert.Contains(t, po.LastError, "boom")
	for _, item := range f.items(t, first.Items[0].ID, second.Items[0].ID) {
		assert.Equal(t, procurement.ProcurementStatusFailed, item.ProcurementStatus)
		assert.Nil(t, item.PurchaseOrderID)
	}
	assert.Equal(t, 1, f.env.CountOutbox(t, procurement.EventTypePurchaseOrderFailed))

	// failed items are picked up again once the supplier recovers
	f.conn.FailOrders(nil)
	retry := f.run(t)
	assert.Equal(t, 2, retry.Collected)
	assert.Equal(t, 1, retry.OrdersSent)
	for _, item := range f.items(t, first.Items[0].ID, second.Items[0].ID) {
		assert.Equal(t, procurement.ProcurementStatusOrdered, item.ProcurementStatus)
	}
}

func TestRun_ReportsUnfulfillable(t *testing.T) {
	f := newProcurementFixture(t, false)
	orphan := f.env.SeedProduct(t, f.tenantID, "NO-OFFER")
	order := f.ingest(t, "MP-1", line(orphan.ID, "1"))

	run := f.run(t)
	assert.Equal(t, 1, run.Collected)
	assert.Equal(t, 1, run.Unfulfillable)
	assert.Zero(t, run.OrdersCreated)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, CodeUnfulfillable, run.Errors[0].Code)
	assert.Equal(t, order.Items[0].ID.String(), run.Errors[0].Ref)

	item := f.items(t, order.Items[0].ID)[order.Items[0].ID]
	assert.Equal(t, procurement.ProcurementStatusPending, item.ProcurementStatus)
}

func TestRun_SkipsOverriddenItems(t *testing.T) {
	f := newProcurementFixture(t, false)
	product := f.productWithOffer(t, "CAB-1")
	order := f.ingest(t, "MP-1", line(product.ID, "1"), line(product.ID, "2"))
	ctx := context.Background()

	override, err := f.svc.CreateOverride(ctx, f.tenantID, order.Items[0].ID, "customer pickup", "alice")
	require.NoError(t, err)
	_, err = f.svc.CreateOverride(ctx, f.tenantID, order.Items[0].ID, "again", "alice")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	run := f.run(t)
	assert.Equal(t, 1, run.Collected)
	assertDec(t, "2", f.batch(t, run)[0].Lines[0].Quantity)

	require.NoError(t, f.svc.DeleteOverride(ctx, f.tenantID, override.ID))
	list, err := f.svc.Overrides(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, f.run(t).Collected)
}

func TestRun_ConcurrentRunRejected(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	lock, err := f.locker.TryLock(ctx, LockKey(f.tenantID, f.channel.ID), time.Minute)
	require.NoError(t, err)
	defer func() { _ = lock.Unlock(ctx) }()

	_, err = f.svc.Run(ctx, f.tenantID, f.channel.ID, procurement.TriggerSchedule)
	assert.ErrorIs(t, err, shared.ErrRunInProgress)
}

func TestDraftEditing(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	cable := f.productWithOffer(t, "CAB-1")
	lamp := f.productWithOffer(t, "LAMP-1")
	order := f.ingest(t, "MP-1", line(cable.ID, "3"), line(lamp.ID, "1"))
	po := f.batch(t, f.run(t))[0]
	require.Len(t, po.Lines, 2)
	assertDec(t, "400", po.TotalAmount)

	updated, err := f.svc.UpdateLineQuantity(ctx, f.tenantID, po.ID, cable.ID, dec("10"))
	require.NoError(t, err)
	assertDec(t, "1100", updated.TotalAmount)

	_, err = f.svc.UpdateLineQuantity(ctx, f.tenantID, po.ID, cable.ID, dec("0"))
	require.Error(t, err)

	updated, err = f.svc.RemoveLine(ctx, f.tenantID, po.ID, lamp.ID, "out of season", "bob")
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assertDec(t, "1000", updated.TotalAmount)

	lampItem := order.Items[1]
	override, err := f.env.Repos().Overrides().FindByOrderItem(ctx, f.tenantID, lampItem.ID)
	require.NoError(t, err)
	assert.Equal(t, "out of season", override.Reason)
	item := f.items(t, lampItem.ID)[lampItem.ID]
	assert.Equal(t, procurement.ProcurementStatusPending, item.ProcurementStatus)
	assert.Nil(t, item.PurchaseOrderID)

	updated, err = f.svc.RemoveLine(ctx, f.tenantID, po.ID, cable.ID, "", "bob")
	require.NoError(t, err)
	assert.Equal(t, procurement.PurchaseOrderStatusCancelled, updated.Status)
	assert.Zero(t, f.run(t).Collected, "both items carry overrides now")
}

func TestConfirmPurchaseOrder_AdvancesReservedItemsAndSends(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	wh := f.env.SeedWarehouse(t, f.tenantID, "MSK", 10)
	stocked := f.productWithOffer(t, "CAB-1")
	missing := f.productWithOffer(t, "LAMP-1")
	f.env.SeedStock(t, f.tenantID, wh.ID, stocked.ID, "10")

	order := f.ingest(t, "MP-1", line(stocked.ID, "4"), line(missing.ID, "2"))
	order, err := f.svc.ReserveOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.ProcurementStatusNotRequired, order.Items[0].ProcurementStatus)
	assertDec(t, "2", order.Items[1].ProcureQuantity)

	po := f.batch(t, f.run(t))[0]
	require.Len(t, po.Lines, 1)
	assert.Equal(t, missing.ID, po.Lines[0].ProductID)

	sent, err := f.svc.ConfirmPurchaseOrder(ctx, f.tenantID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.PurchaseOrderStatusSent, sent.Status)
	require.NotNil(t, sent.ConfirmedAt)

	order, err = f.svc.GetOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	for _, item := range order.Items {
		assert.Equal(t, procurement.FulfillmentStatusConfirmed, item.FulfillmentStatus)
	}

	_, err = f.svc.ConfirmPurchaseOrder(ctx, f.tenantID, po.ID)
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
}

func TestOrderLifecycle_ShipConsumesStock(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	wh := f.env.SeedWarehouse(t, f.tenantID, "MSK", 10)
	product := f.productWithOffer(t, "CAB-1")
	f.env.SeedStock(t, f.tenantID, wh.ID, product.ID, "10")

	order := f.ingest(t, "MP-1", line(product.ID, "4"))
	_, err := f.svc.ReserveOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	link, err := f.ledger.Stock(ctx, f.tenantID, wh.ID, product.ID)
	require.NoError(t, err)
	assertDec(t, "4", link.Reserved)

	_, err = f.svc.ShipOrder(ctx, f.tenantID, order.ID)
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err), "nothing confirmed yet")

	_, err = f.svc.ConfirmOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	shipped, err := f.svc.ShipOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.FulfillmentStatusShipped, shipped.Items[0].FulfillmentStatus)

	link, err = f.ledger.Stock(ctx, f.tenantID, wh.ID, product.ID)
	require.NoError(t, err)
	assertDec(t, "6", link.Quantity)
	assertDec(t, "0", link.Reserved)
	assertDec(t, "6", link.Available)

	delivered, err := f.svc.DeliverOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.OrderStatusCompleted, delivered.Status)

	_, err = f.svc.CancelOrder(ctx, f.tenantID, order.ID, "")
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
}

func TestCancelOrder_ReleasesStockAndCancelsPurchases(t *testing.T) {
	f := newProcurementFixture(t, true)
	ctx := context.Background()
	wh := f.env.SeedWarehouse(t, f.tenantID, "MSK", 10)
	stocked := f.productWithOffer(t, "CAB-1")
	missing := f.productWithOffer(t, "LAMP-1")
	f.env.SeedStock(t, f.tenantID, wh.ID, stocked.ID, "10")

	order := f.ingest(t, "MP-1", line(stocked.ID, "4"), line(missing.ID, "2"))
	other := f.ingest(t, "MP-2", line(missing.ID, "1"))
	_, err := f.svc.ReserveOrder(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	po := f.batch(t, f.run(t))[0]
	require.Equal(t, procurement.PurchaseOrderStatusSent, po.Status)

	f.conn.FailCancel(errors.New("supplier offline"))
	cancelled, err := f.svc.CancelOrder(ctx, f.tenantID, order.ID, "buyer changed mind")
	require.NoError(t, err, "a failed supplier-side cancel is not fatal")
	assert.Equal(t, procurement.OrderStatusCancelled, cancelled.Status)
	for _, item := range cancelled.Items {
		assert.Equal(t, procurement.FulfillmentStatusCancelled, item.FulfillmentStatus)
	}
	assert.Equal(t, 1, f.conn.Calls("CancelOrder"))

	link, err := f.ledger.Stock(ctx, f.tenantID, wh.ID, stocked.ID)
	require.NoError(t, err)
	assertDec(t, "0", link.Reserved)
	assertDec(t, "10", link.Available)

	stored, err := f.svc.PurchaseOrder(ctx, f.tenantID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.PurchaseOrderStatusCancelled, stored.Status)
	assert.Equal(t, 1, f.env.CountOutbox(t, procurement.EventTypePurchaseOrderCancelled))

	otherItem := f.items(t, other.Items[0].ID)[other.Items[0].ID]
	assert.Equal(t, procurement.ProcurementStatusPending, otherItem.ProcurementStatus, "demand of other orders is procured again")
}

func TestCancelOrder_DetachesFromDraft(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	product := f.productWithOffer(t, "CAB-1")
	order := f.ingest(t, "MP-1", line(product.ID, "3"))
	keep := f.ingest(t, "MP-2", line(product.ID, "5"))
	po := f.batch(t, f.run(t))[0]

	_, err := f.svc.CancelOrder(ctx, f.tenantID, order.ID, "")
	require.NoError(t, err)

	stored, err := f.svc.PurchaseOrder(ctx, f.tenantID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.PurchaseOrderStatusDraft, stored.Status)
	require.Len(t, stored.Lines, 1)
	assertDec(t, "5", stored.Lines[0].Quantity)
	assertDec(t, "500", stored.TotalAmount)
	assert.Equal(t, []uuid.UUID{keep.Items[0].ID}, stored.OrderItemIDs())
	assert.Zero(t, f.conn.Calls("CancelOrder"))
}

func TestRefreshPurchaseOrderStatus(t *testing.T) {
	f := newProcurementFixture(t, true)
	ctx := context.Background()
	product := f.productWithOffer(t, "CAB-1")
	f.ingest(t, "MP-1", line(product.ID, "1"))
	po := f.batch(t, f.run(t))[0]

	f.conn.SetOrderStatus(po.ExternalOrderID, "shipped")
	refreshed, err := f.svc.RefreshPurchaseOrderStatus(ctx, f.tenantID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, "shipped", refreshed.ExternalStatus)

	f.conn.SetOrderStatus(po.ExternalOrderID, "delivered")
	res, err := f.svc.RefreshSentOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	stored, err := f.svc.PurchaseOrder(ctx, f.tenantID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", stored.ExternalStatus)

	f.conn.FailStatus(integration.NewSupplierError(integration.ErrorKindNetwork, "ACME", "getOrderStatus", "timeout", nil))
	res, err = f.svc.RefreshSentOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

func TestConfirmAndCancelRun(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	product := f.productWithOffer(t, "CAB-1")
	order := f.ingest(t, "MP-1", line(product.ID, "2"))

	run := f.run(t)
	res, err := f.svc.CancelRun(ctx, f.tenantID, run.ID, "wrong batch")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	item := f.items(t, order.Items[0].ID)[order.Items[0].ID]
	assert.Equal(t, procurement.ProcurementStatusPending, item.ProcurementStatus)

	run = f.run(t)
	res, err = f.svc.ConfirmRun(ctx, f.tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, procurement.PurchaseOrderStatusSent, f.batch(t, run)[0].Status)

	runs, err := f.svc.Runs(ctx, f.tenantID, f.channel.ID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	got, err := f.svc.GetRun(ctx, f.tenantID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.BatchID, got.BatchID)
}

func TestIngestOrder(t *testing.T) {
	f := newProcurementFixture(t, false)
	ctx := context.Background()
	product := f.productWithOffer(t, "CAB-1")

	first := f.ingest(t, "MP-1", line(product.ID, "1"))
	again := f.ingest(t, "MP-1", line(product.ID, "7"))
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, f.env.CountOutbox(t, procurement.EventTypeCustomerOrderReceived))

	_, err := f.svc.IngestOrder(ctx, f.tenantID, IngestOrderRequest{
		ChannelID:   f.channel.ID,
		ExternalRef: "MP-2",
		Lines:       []procurement.OrderLineInput{line(uuid.New(), "1")},
	})
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))

	_, err = f.svc.IngestOrder(ctx, f.tenantID, IngestOrderRequest{ChannelID: uuid.New(), ExternalRef: "MP-3"})
	assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
}
