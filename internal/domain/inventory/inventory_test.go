package inventory

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newLink(t *testing.T, quantity int64) *StockLink {
	t.Helper()
	l, err := NewStockLink(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = l.SetQuantity(dec(quantity), nil)
	require.NoError(t, err)
	l.ClearDomainEvents()
	return l
}

func TestStockLink_ReserveRelease(t *testing.T) {
	l := newLink(t, 10)

	require.NoError(t, l.Reserve(dec(4)))
	assert.True(t, dec(4).Equal(l.Reserved))
	assert.True(t, dec(6).Equal(l.Available))
	require.NoError(t, l.CheckInvariants())

	err := l.Reserve(dec(7))
	var insufficient *InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.True(t, dec(1).Equal(insufficient.Shortfall()))

	released, err := l.Release(dec(10))
	require.NoError(t, err)
	assert.True(t, dec(4).Equal(released), "release is floored at what is reserved")
	assert.True(t, l.Reserved.IsZero())
	require.NoError(t, l.CheckInvariants())

	events := l.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeStockChanged, events[0].EventType())
}

func TestStockLink_Consume(t *testing.T) {
	l := newLink(t, 10)
	require.NoError(t, l.Reserve(dec(3)))

	require.NoError(t, l.Consume(dec(3)))
	assert.True(t, dec(7).Equal(l.Quantity))
	assert.True(t, l.Reserved.IsZero())
	require.NoError(t, l.CheckInvariants())

	assert.Error(t, l.Consume(dec(8)))
	assert.Error(t, l.Consume(decimal.Zero))
}

func TestStockLink_SetQuantity(t *testing.T) {
	l := newLink(t, 10)
	require.NoError(t, l.Reserve(dec(8)))

	price := decimal.RequireFromString("12.50")
	delta, err := l.SetQuantity(dec(5), &price)
	require.NoError(t, err)

	assert.True(t, dec(-5).Equal(delta))
	assert.True(t, dec(5).Equal(l.Reserved), "reserved is clamped to the new quantity")
	assert.True(t, l.Available.IsZero())
	assert.True(t, price.Equal(l.UnitPrice))
	require.NoError(t, l.CheckInvariants())

	_, err = l.SetQuantity(dec(-1), nil)
	assert.Error(t, err)
}

func TestStockLink_Transfer(t *testing.T) {
	from := newLink(t, 10)
	to := newLink(t, 0)
	require.NoError(t, from.Reserve(dec(6)))

	assert.Error(t, from.TransferOut(dec(5)), "only unreserved stock moves")
	require.NoError(t, from.TransferOut(dec(4)))
	require.NoError(t, to.TransferIn(dec(4)))

	assert.True(t, dec(6).Equal(from.Quantity))
	assert.True(t, dec(4).Equal(to.Available))
	require.NoError(t, from.CheckInvariants())
}

func candidate(t *testing.T, available int64, priority int, price string) Candidate {
	l := newLink(t, available)
	l.UnitPrice = decimal.RequireFromString(price)
	return Candidate{Link: l, Priority: priority}
}

func TestSelectWarehouse(t *testing.T) {
	productID := uuid.New()

	t.Run("single warehouse first, not split", func(t *testing.T) {
		preferred := candidate(t, 6, 10, "5")
		lower := candidate(t, 12, 1, "5")
		pw := preferred.Link.WarehouseID

		chosen, alloc, err := SelectWarehouse(productID, []Candidate{preferred, lower}, dec(10), &pw, false)
		require.NoError(t, err)
		assert.Equal(t, lower.Link.WarehouseID, chosen.Link.WarehouseID)
		assert.True(t, dec(10).Equal(alloc.Quantity))
		assert.True(t, alloc.Shortfall.IsZero())
	})

	t.Run("preferred beats priority when it can serve", func(t *testing.T) {
		high := candidate(t, 20, 10, "1")
		preferred := candidate(t, 20, 0, "9")
		pw := preferred.Link.WarehouseID

		chosen, _, err := SelectWarehouse(productID, []Candidate{high, preferred}, dec(5), &pw, false)
		require.NoError(t, err)
		assert.Equal(t, pw, chosen.Link.WarehouseID)
	})

	t.Run("equal priority prefers lower price", func(t *testing.T) {
		pricey := candidate(t, 20, 5, "9.99")
		cheap := candidate(t, 20, 5, "7.10")

		chosen, alloc, err := SelectWarehouse(productID, []Candidate{pricey, cheap}, dec(5), nil, false)
		require.NoError(t, err)
		assert.Equal(t, cheap.Link.WarehouseID, chosen.Link.WarehouseID)
		assert.Equal(t, "7.1", alloc.UnitPrice.String())
	})

	t.Run("no single warehouse suffices", func(t *testing.T) {
		a := candidate(t, 6, 10, "1")
		b := candidate(t, 8, 1, "1")

		_, _, err := SelectWarehouse(productID, []Candidate{a, b}, dec(20), nil, false)
		var insufficient *InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		assert.True(t, dec(14).Equal(insufficient.Available))
		assert.True(t, dec(6).Equal(insufficient.Shortfall()))
	})

	t.Run("fallback records first fit and reports shortfall", func(t *testing.T) {
		a := candidate(t, 6, 10, "1")
		b := candidate(t, 8, 1, "1")

		chosen, alloc, err := SelectWarehouse(productID, []Candidate{a, b}, dec(10), nil, true)
		require.NoError(t, err)
		assert.Equal(t, a.Link.WarehouseID, chosen.Link.WarehouseID)
		assert.True(t, dec(6).Equal(alloc.Quantity))
		assert.True(t, dec(4).Equal(alloc.Shortfall))
	})
}
