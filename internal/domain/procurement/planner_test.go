package procurement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

func planRates(t *testing.T) valueobject.ExchangeRates {
	t.Helper()
	rates, err := valueobject.NewExchangeRates(valueobject.RUB, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: dec("90"),
	}, time.Now())
	require.NoError(t, err)
	return rates
}

func planOffer(t *testing.T, productID, supplierID uuid.UUID, cost string, currency valueobject.Currency, qty string) catalog.SupplierOffer {
	t.Helper()
	o, err := catalog.NewSupplierOffer(uuid.New(), productID, supplierID, "EXT-"+uuid.NewString()[:8], catalog.OfferQuote{
		Cost:     dec(cost),
		Currency: currency,
		Quantity: dec(qty),
	})
	require.NoError(t, err)
	return *o
}

func planItem(t *testing.T, order *CustomerOrder, productID uuid.UUID, qty string) OrderItem {
	t.Helper()
	item, err := NewOrderItem(order, productID, dec(qty), dec("1"))
	require.NoError(t, err)
	return *item
}

func TestChooseOffer(t *testing.T) {
	product := uuid.New()
	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()
	active := map[uuid.UUID]bool{s1: true, s2: true}
	rates := planRates(t)

	cheapShort := planOffer(t, product, s1, "50", valueobject.RUB, "2")
	pricierFull := planOffer(t, product, s2, "1", valueobject.USD, "10")
	inactive := planOffer(t, product, s3, "10", valueobject.RUB, "100")

	got, ok := ChooseOffer([]catalog.SupplierOffer{cheapShort, pricierFull, inactive}, dec("5"), active, rates)
	require.True(t, ok)
	assert.Equal(t, pricierFull.ID, got.ID, "offer covering the quantity wins")

	got, ok = ChooseOffer([]catalog.SupplierOffer{cheapShort, pricierFull}, dec("1"), active, rates)
	require.True(t, ok)
	assert.Equal(t, cheapShort.ID, got.ID, "both cover, 50 RUB beats 90 RUB")

	unavailable := planOffer(t, product, s1, "5", valueobject.RUB, "10")
	unavailable.MarkUnavailable()
	unknownCurrency := planOffer(t, product, s2, "1", valueobject.CNY, "10")
	_, ok = ChooseOffer([]catalog.SupplierOffer{unavailable, unknownCurrency, inactive}, dec("1"), active, rates)
	assert.False(t, ok)
}

func TestPlanPurchases_MergesSameProductAndSupplier(t *testing.T) {
	order, err := NewCustomerOrder(uuid.New(), uuid.New(), "MP-1", []OrderLineInput{{ProductID: uuid.New(), Quantity: dec("1")}})
	require.NoError(t, err)
	product, orphan := uuid.New(), uuid.New()
	supplier := uuid.New()

	a := planItem(t, order, product, "3")
	b := planItem(t, order, product, "5")
	c := planItem(t, order, orphan, "1")
	offer := planOffer(t, product, supplier, "100", valueobject.RUB, "20")

	plan := PlanPurchases([]OrderItem{a, b, c},
		map[uuid.UUID][]catalog.SupplierOffer{product: {offer}},
		map[uuid.UUID]bool{supplier: true}, planRates(t))

	require.Len(t, plan.Groups, 1)
	g := plan.Groups[0]
	assert.Equal(t, supplier, g.SupplierID)
	assert.Equal(t, valueobject.RUB, g.Currency)
	require.Len(t, g.Demands, 2)

	po, err := NewSupplierPurchaseOrder(order.TenantID, order.ChannelID, supplier, uuid.New(), string(g.Currency))
	require.NoError(t, err)
	for _, d := range g.Demands {
		require.NoError(t, po.AddDemand(d))
	}
	require.Len(t, po.Lines, 1)
	assert.Equal(t, "8", po.Lines[0].Quantity.String())
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, po.OrderItemIDs())
	assert.Equal(t, "800", po.TotalAmount.String())

	require.Len(t, plan.Unfulfillable, 1)
	assert.Equal(t, c.ID, plan.Unfulfillable[0].ID)
}

func TestPlanPurchases_SkipsItemsWithoutDemand(t *testing.T) {
	order, err := NewCustomerOrder(uuid.New(), uuid.New(), "MP-2", []OrderLineInput{{ProductID: uuid.New(), Quantity: dec("1")}})
	require.NoError(t, err)
	item := planItem(t, order, uuid.New(), "2")
	require.NoError(t, item.ApplyReservation(nil, dec("2")))

	plan := PlanPurchases([]OrderItem{item}, nil, nil, planRates(t))
	assert.Empty(t, plan.Groups)
	assert.Empty(t, plan.Unfulfillable)
}
