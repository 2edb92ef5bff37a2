package procurement

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newDraft(t *testing.T) *SupplierPurchaseOrder {
	t.Helper()
	po, err := NewSupplierPurchaseOrder(uuid.New(), uuid.New(), uuid.New(), uuid.New(), "RUB")
	require.NoError(t, err)
	return po
}

func assertTotal(t *testing.T, po *SupplierPurchaseOrder) {
	t.Helper()
	sum := decimal.Zero
	for _, line := range po.Lines {
		sum = sum.Add(line.Quantity.Mul(line.UnitCost))
	}
	assert.True(t, sum.Equal(po.TotalAmount), "total %s != sum of lines %s", po.TotalAmount, sum)
}

func TestSupplierPurchaseOrder_MergesDemandPerProduct(t *testing.T) {
	po := newDraft(t)
	productID := uuid.New()
	offerID := uuid.New()
	itemA, itemB := uuid.New(), uuid.New()

	require.NoError(t, po.AddDemand(Demand{OrderItemID: itemA, ProductID: productID, OfferID: offerID, ExternalProductID: "X-1", Quantity: dec("3"), UnitCost: dec("100")}))
	require.NoError(t, po.AddDemand(Demand{OrderItemID: itemB, ProductID: productID, OfferID: offerID, ExternalProductID: "X-1", Quantity: dec("5"), UnitCost: dec("100")}))

	require.Len(t, po.Lines, 1)
	assert.True(t, dec("8").Equal(po.Lines[0].Quantity))
	assert.ElementsMatch(t, []uuid.UUID{itemA, itemB}, po.Lines[0].OrderItemIDs())
	assert.True(t, dec("800").Equal(po.TotalAmount))

	err := po.AddDemand(Demand{OrderItemID: itemA, ProductID: productID, Quantity: dec("1"), UnitCost: dec("100")})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestSupplierPurchaseOrder_TotalAfterEveryMutation(t *testing.T) {
	po := newDraft(t)
	p1, p2 := uuid.New(), uuid.New()
	item1, item2, item3 := uuid.New(), uuid.New(), uuid.New()

	steps := []struct {
		name string
		op   func() error
	}{
		{"add first product", func() error {
			return po.AddDemand(Demand{OrderItemID: item1, ProductID: p1, Quantity: dec("2"), UnitCost: dec("10.50")})
		}},
		{"add second product", func() error {
			return po.AddDemand(Demand{OrderItemID: item2, ProductID: p2, Quantity: dec("4"), UnitCost: dec("3.25")})
		}},
		{"merge into first", func() error {
			return po.AddDemand(Demand{OrderItemID: item3, ProductID: p1, Quantity: dec("1"), UnitCost: dec("10.50")})
		}},
		{"update quantity", func() error { return po.UpdateLineQuantity(p2, dec("7")) }},
		{"detach item", func() error {
			_, err := po.DetachItem(item3)
			return err
		}},
		{"remove line", func() error {
			_, err := po.RemoveLine(p1)
			return err
		}},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			require.NoError(t, step.op())
			assertTotal(t, po)
		})
	}
	assert.True(t, dec("22.75").Equal(po.TotalAmount))
}

func TestSupplierPurchaseOrder_DetachLastContributorRemovesLine(t *testing.T) {
	po := newDraft(t)
	p := uuid.New()
	item := uuid.New()
	require.NoError(t, po.AddDemand(Demand{OrderItemID: item, ProductID: p, Quantity: dec("2"), UnitCost: dec("5")}))

	changed, err := po.DetachItem(item)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, po.IsEmpty())
	assert.True(t, po.TotalAmount.IsZero())

	changed, err = po.DetachItem(uuid.New())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSupplierPurchaseOrder_EditsOnlyInDraft(t *testing.T) {
	po := newDraft(t)
	p := uuid.New()
	require.NoError(t, po.AddDemand(Demand{OrderItemID: uuid.New(), ProductID: p, Quantity: dec("1"), UnitCost: dec("5")}))
	require.NoError(t, po.Confirm())

	assert.True(t, errors.Is(po.UpdateLineQuantity(p, dec("2")), shared.ErrInvalidState))
	_, err := po.RemoveLine(p)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.True(t, errors.Is(po.AddDemand(Demand{OrderItemID: uuid.New(), ProductID: p, Quantity: dec("1")}), shared.ErrInvalidState))
}

func TestSupplierPurchaseOrder_StatusMachine(t *testing.T) {
	tests := []struct {
		from, to PurchaseOrderStatus
		allowed  bool
	}{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusConfirmed, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusSent, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusError, true},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusSent, true},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusDraft, false},
		{PurchaseOrderStatusSent, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusSent, PurchaseOrderStatusError, false},
		{PurchaseOrderStatusError, PurchaseOrderStatusSent, false},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSupplierPurchaseOrder_SendAndFail(t *testing.T) {
	po := newDraft(t)
	require.NoError(t, po.AddDemand(Demand{OrderItemID: uuid.New(), ProductID: uuid.New(), Quantity: dec("1"), UnitCost: dec("5")}))
	require.NoError(t, po.Confirm())
	require.NoError(t, po.MarkSent("EXT-1", "accepted"))
	assert.Equal(t, PurchaseOrderStatusSent, po.Status)
	assert.Equal(t, "EXT-1", po.ExternalOrderID)
	assert.NotNil(t, po.SentAt)

	failed := newDraft(t)
	require.NoError(t, failed.AddDemand(Demand{OrderItemID: uuid.New(), ProductID: uuid.New(), Quantity: dec("1"), UnitCost: dec("5")}))
	require.NoError(t, failed.MarkError(errors.New("supplier down")))
	assert.Equal(t, PurchaseOrderStatusError, failed.Status)
	assert.Equal(t, "supplier down", failed.LastError)

	events := failed.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePurchaseOrderFailed, events[0].EventType())
}

func TestSupplierPurchaseOrder_ConfirmRequiresLines(t *testing.T) {
	po := newDraft(t)
	assert.Error(t, po.Confirm())
}

func newOrder(t *testing.T, quantities ...string) *CustomerOrder {
	t.Helper()
	lines := make([]OrderLineInput, 0, len(quantities))
	for _, q := range quantities {
		lines = append(lines, OrderLineInput{ProductID: uuid.New(), Quantity: dec(q), UnitPrice: dec("10")})
	}
	order, err := NewCustomerOrder(uuid.New(), uuid.New(), "MP-1001", lines)
	require.NoError(t, err)
	return order
}

func TestNewCustomerOrder_Validation(t *testing.T) {
	_, err := NewCustomerOrder(uuid.New(), uuid.New(), " ", []OrderLineInput{{ProductID: uuid.New(), Quantity: dec("1")}})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = NewCustomerOrder(uuid.New(), uuid.New(), "R-1", nil)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = NewCustomerOrder(uuid.New(), uuid.New(), "R-1", []OrderLineInput{{ProductID: uuid.New(), Quantity: dec("0")}})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	order := newOrder(t, "2")
	item := order.Items[0]
	assert.Equal(t, ProcurementStatusPending, item.ProcurementStatus)
	assert.Equal(t, FulfillmentStatusNew, item.FulfillmentStatus)
	assert.True(t, dec("2").Equal(item.ProcureQuantity))
	assert.Equal(t, order.ChannelID, item.ChannelID)
}

func TestOrderItem_ApplyReservation(t *testing.T) {
	warehouse := uuid.New()

	t.Run("full reservation needs no procurement", func(t *testing.T) {
		item := &newOrder(t, "5").Items[0]
		require.NoError(t, item.ApplyReservation(&warehouse, dec("5")))
		assert.Equal(t, ProcurementStatusNotRequired, item.ProcurementStatus)
		assert.True(t, item.ProcureQuantity.IsZero())
		assert.False(t, item.NeedsProcurement())
		assert.Equal(t, warehouse, *item.ReservedWarehouseID)
	})

	t.Run("shortfall becomes procure quantity", func(t *testing.T) {
		item := &newOrder(t, "10").Items[0]
		require.NoError(t, item.ApplyReservation(&warehouse, dec("6")))
		assert.Equal(t, ProcurementStatusPending, item.ProcurementStatus)
		assert.True(t, dec("4").Equal(item.ProcureQuantity))
		assert.True(t, item.NeedsProcurement())
	})

	t.Run("nothing reserved", func(t *testing.T) {
		item := &newOrder(t, "3").Items[0]
		require.NoError(t, item.ApplyReservation(nil, decimal.Zero))
		assert.Nil(t, item.ReservedWarehouseID)
		assert.True(t, dec("3").Equal(item.ProcureQuantity))
		assert.Equal(t, FulfillmentStatusReserved, item.FulfillmentStatus)
	})

	t.Run("twice is rejected", func(t *testing.T) {
		item := &newOrder(t, "3").Items[0]
		require.NoError(t, item.ApplyReservation(&warehouse, dec("1")))
		assert.True(t, errors.Is(item.ApplyReservation(&warehouse, dec("1")), shared.ErrInvalidState))
	})

	t.Run("ordered item is not reserved again", func(t *testing.T) {
		item := &newOrder(t, "3").Items[0]
		require.NoError(t, item.MarkOrdered(uuid.New()))
		assert.True(t, errors.Is(item.ApplyReservation(&warehouse, dec("3")), shared.ErrInvalidState))
		assert.True(t, item.ReservedQuantity.IsZero())
		assert.Equal(t, FulfillmentStatusNew, item.FulfillmentStatus)
	})
}

func TestOrderItem_ProcurementTransitions(t *testing.T) {
	item := &newOrder(t, "3").Items[0]
	poID := uuid.New()

	require.NoError(t, item.MarkOrdered(poID))
	assert.Equal(t, ProcurementStatusOrdered, item.ProcurementStatus)
	assert.Equal(t, poID, *item.PurchaseOrderID)
	assert.Error(t, item.MarkOrdered(uuid.New()))

	item.MarkFailed()
	assert.Equal(t, ProcurementStatusFailed, item.ProcurementStatus)
	assert.Nil(t, item.PurchaseOrderID)
	assert.True(t, item.NeedsProcurement(), "failed items are retried")

	require.NoError(t, item.MarkOrdered(poID))
	item.RevertToPending()
	assert.Equal(t, ProcurementStatusPending, item.ProcurementStatus)
}

func TestOrderItem_FulfillmentTransitions(t *testing.T) {
	warehouse := uuid.New()
	item := &newOrder(t, "2").Items[0]

	assert.Error(t, item.Ship(), "cannot ship before confirmation")
	require.NoError(t, item.ApplyReservation(&warehouse, dec("2")))
	require.NoError(t, item.Confirm())
	require.NoError(t, item.Ship())
	assert.True(t, item.ReservedQuantity.IsZero())
	require.NoError(t, item.Deliver())
	assert.Equal(t, FulfillmentStatusDelivered, item.FulfillmentStatus)
	assert.Error(t, item.Cancel())
}

func TestOrderItem_ReleaseReservation(t *testing.T) {
	warehouse := uuid.New()
	item := &newOrder(t, "4").Items[0]
	require.NoError(t, item.ApplyReservation(&warehouse, dec("4")))

	require.NoError(t, item.ReleaseReservation())
	assert.Equal(t, FulfillmentStatusNew, item.FulfillmentStatus)
	assert.Equal(t, ProcurementStatusPending, item.ProcurementStatus)
	assert.True(t, dec("4").Equal(item.ProcureQuantity))
	assert.Nil(t, item.ReservedWarehouseID)
}

func TestCustomerOrder_Cancel(t *testing.T) {
	order := newOrder(t, "1", "2")
	require.NoError(t, order.Items[1].MarkOrdered(uuid.New()))

	require.NoError(t, order.Cancel())
	assert.Equal(t, OrderStatusCancelled, order.Status)
	for _, item := range order.Items {
		assert.Equal(t, FulfillmentStatusCancelled, item.FulfillmentStatus)
		assert.Equal(t, ProcurementStatusCancelled, item.ProcurementStatus)
	}
	assert.True(t, errors.Is(order.Cancel(), shared.ErrInvalidState))
}

func TestCustomerOrder_CancelRejectedAfterShipping(t *testing.T) {
	warehouse := uuid.New()
	order := newOrder(t, "1")
	item := &order.Items[0]
	require.NoError(t, item.ApplyReservation(&warehouse, dec("1")))
	require.NoError(t, item.Confirm())
	require.NoError(t, item.Ship())

	assert.True(t, errors.Is(order.Cancel(), shared.ErrInvalidState))
	assert.Equal(t, OrderStatusOpen, order.Status)
}

func TestCustomerOrder_RefreshStatus(t *testing.T) {
	order := newOrder(t, "1")
	order.RefreshStatus()
	assert.Equal(t, OrderStatusOpen, order.Status)

	order.Items[0].FulfillmentStatus = FulfillmentStatusDelivered
	order.RefreshStatus()
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestNewManualOverride(t *testing.T) {
	item := &newOrder(t, "1").Items[0]
	_, err := NewManualOverride(item, "  ", "ops")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	o, err := NewManualOverride(item, "buy locally", "ops")
	require.NoError(t, err)
	assert.Equal(t, item.ID, o.OrderItemID)
	assert.Equal(t, item.ProductID, o.ProductID)
}

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun(uuid.New(), uuid.New(), TriggerManual)
	assert.NotEqual(t, uuid.Nil, run.BatchID)
	run.Collected = 2
	run.RecordError("item-1", shared.NewValidationError("bad"))
	run.Finish()

	assert.Equal(t, RunStatusCompleted, run.Status)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, shared.CodeValidation, run.Errors[0].Code)
	require.Len(t, run.GetDomainEvents(), 1)
}
