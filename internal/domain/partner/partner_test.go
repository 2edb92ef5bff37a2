package partner

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

func TestNewSupplier(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates active supplier with normalized code", func(t *testing.T) {
		s, err := NewSupplier(tenantID, " acme ", "Acme Trade", integration.ConnectorTypeHTTPJSON, ConnectorSettings{
			BaseURL:  "https://api.acme.test",
			Currency: "USD",
		})
		require.NoError(t, err)

		assert.Equal(t, "ACME", s.Code)
		assert.True(t, s.IsActive())
		assert.Equal(t, "https://api.acme.test", s.ConnectorConfig().BaseURL)
		assert.Equal(t, s.ID, s.ConnectorConfig().SupplierID)
	})

	t.Run("rejects invalid settings", func(t *testing.T) {
		_, err := NewSupplier(tenantID, "ACME", "Acme", integration.ConnectorTypeHTTPJSON, ConnectorSettings{BaseURL: "not a url"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		assert.Contains(t, err.Error(), "base_url")
	})

	t.Run("requires connector type", func(t *testing.T) {
		_, err := NewSupplier(tenantID, "ACME", "Acme", "", ConnectorSettings{})
		assert.Error(t, err)
	})
}

func TestWarehouses(t *testing.T) {
	tenantID := uuid.New()
	s, err := NewSupplier(tenantID, "ACME", "Acme", integration.ConnectorTypeCSVFeed, ConnectorSettings{})
	require.NoError(t, err)

	t.Run("virtual warehouse belongs to supplier", func(t *testing.T) {
		w, err := NewVirtualWarehouse(tenantID, s)
		require.NoError(t, err)

		assert.True(t, w.IsVirtual())
		assert.Equal(t, "V-ACME", w.Code)
		require.NotNil(t, w.SupplierID)
		assert.Equal(t, s.ID, *w.SupplierID)

		s.AttachVirtualWarehouse(w.ID)
		assert.Equal(t, w.ID, *s.VirtualWarehouseID)
		assert.Equal(t, 2, s.Version)
	})

	t.Run("physical warehouse validation", func(t *testing.T) {
		w, err := NewPhysicalWarehouse(tenantID, "main", "Main", 10)
		require.NoError(t, err)
		assert.Equal(t, "MAIN", w.Code)
		assert.Equal(t, 10, w.Priority)

		w.Deactivate()
		assert.False(t, w.IsActive())

		_, err = NewPhysicalWarehouse(tenantID, "", "Main", 0)
		assert.Error(t, err)
	})
}
