package catalog

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

func TestNewProduct(t *testing.T) {
	tenantID := uuid.New()

	t.Run("uppercases SKU and emits created event", func(t *testing.T) {
		p, err := NewProduct(tenantID, " ab-12x ", ProductContent{Name: "Drill", Brand: "BOSCH"})
		require.NoError(t, err)

		assert.Equal(t, "AB-12X", p.SKU)
		assert.True(t, p.IsActive())
		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())
	})

	t.Run("missing SKU is a validation error", func(t *testing.T) {
		_, err := NewProduct(tenantID, "  ", ProductContent{Name: "Drill"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestProduct_ApplyContent(t *testing.T) {
	supplierID := uuid.New()
	p, err := NewProduct(uuid.New(), "SKU1", ProductContent{Name: "Drill"})
	require.NoError(t, err)
	p.ClearDomainEvents()

	weight := decimal.RequireFromString("1.5")
	content := ProductContent{Name: "Drill 500W", Brand: "BOSCH", WeightKg: &weight}

	assert.True(t, p.ApplyContent(content, supplierID))
	assert.Equal(t, "Drill 500W", p.Name)
	assert.Equal(t, supplierID, *p.ContentSupplierID)
	assert.Len(t, p.GetDomainEvents(), 1)

	same := decimal.RequireFromString("1.50")
	content.WeightKg = &same
	assert.False(t, p.ApplyContent(content, supplierID), "identical content is a no-op")
}

func TestProduct_Deactivate(t *testing.T) {
	p, err := NewProduct(uuid.New(), "SKU1", ProductContent{Name: "Drill"})
	require.NoError(t, err)

	require.NoError(t, p.Deactivate())
	assert.False(t, p.IsActive())
	assert.Error(t, p.Deactivate())
	require.NoError(t, p.Activate())
}

func TestSupplierOffer(t *testing.T) {
	quote := OfferQuote{
		ExternalSKU: "X-1",
		Cost:        decimal.NewFromInt(100),
		Currency:    valueobject.RUB,
		Quantity:    decimal.NewFromInt(7),
	}
	o, err := NewSupplierOffer(uuid.New(), uuid.New(), uuid.New(), "ext-1", quote)
	require.NoError(t, err)
	assert.True(t, o.Qualifies())

	t.Run("identical quote is unchanged", func(t *testing.T) {
		assert.False(t, o.ApplyQuote(quote))
	})

	t.Run("cost change is detected", func(t *testing.T) {
		q := quote
		q.Cost = decimal.NewFromInt(110)
		assert.True(t, o.ApplyQuote(q))
		assert.True(t, decimal.NewFromInt(110).Equal(o.Cost))
	})

	t.Run("retirement keeps cost and zeroes stock", func(t *testing.T) {
		assert.True(t, o.MarkUnavailable())
		assert.False(t, o.Available)
		assert.True(t, o.Quantity.IsZero())
		assert.True(t, decimal.NewFromInt(110).Equal(o.Cost))
		assert.False(t, o.Qualifies())
		assert.False(t, o.MarkUnavailable())
	})

	t.Run("reappearing offer becomes available", func(t *testing.T) {
		q := quote
		q.Cost = decimal.NewFromInt(110)
		assert.True(t, o.ApplyQuote(q))
		assert.True(t, o.Available)
	})
}

func TestSyncRun(t *testing.T) {
	run := NewSyncRun(uuid.New(), uuid.New(), "manual")
	run.Processed++
	run.Created++
	run.RecordError("row-2", shared.NewValidationError("missing SKU"))
	run.Finish()

	assert.Equal(t, SyncRunStatusPartial, run.Status)
	assert.Equal(t, 2, run.Processed)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, shared.CodeValidation, run.Errors[0].Code)
	assert.NotNil(t, run.FinishedAt)

	clean := NewSyncRun(uuid.New(), uuid.New(), "schedule")
	clean.Finish()
	assert.Equal(t, SyncRunStatusCompleted, clean.Status)
}

func TestNewBrandContentSource(t *testing.T) {
	src, err := NewBrandContentSource(uuid.New(), "  bosch   power ", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "BOSCH POWER", src.Brand)

	_, err = NewBrandContentSource(uuid.New(), "", uuid.New())
	assert.Error(t, err)
}
