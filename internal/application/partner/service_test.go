package partner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vde76ru/module-sub000/internal/domain/partner"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

func newSupplierService(t *testing.T) (*testutil.Env, *SupplierService) {
	t.Helper()
	env := testutil.NewEnv(t)
	return env, NewSupplierService(env.Scope, testutil.NewFakeRegistry(), env.Logger)
}

func TestSupplierService_CreateProvisionsVirtualWarehouse(t *testing.T) {
	env, svc := newSupplierService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()

	s, err := svc.Create(ctx, tenantID, CreateSupplierRequest{
		Code:          " acme ",
		Name:          "Acme Ltd",
		ConnectorType: string(testutil.FakeConnectorType),
		Settings:      partner.ConnectorSettings{Currency: "USD"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME", s.Code)
	require.NotNil(t, s.VirtualWarehouseID)

	w, err := env.Repos().Warehouses().FindVirtualBySupplier(ctx, tenantID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, *s.VirtualWarehouseID, w.ID)
	assert.Equal(t, "V-ACME", w.Code)
	assert.True(t, w.IsVirtual())

	_, err = svc.Create(ctx, tenantID, CreateSupplierRequest{
		Code: "ACME", Name: "Again", ConnectorType: string(testutil.FakeConnectorType),
	})
	require.Error(t, err)
	assert.Equal(t, "ALREADY_EXISTS", shared.CodeOf(err))
}

func TestSupplierService_CreateRejectsUnknownConnector(t *testing.T) {
	env, svc := newSupplierService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testutil.TestTenantID(), CreateSupplierRequest{
		Code: "ACME", Name: "Acme", ConnectorType: "soap_xml",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConfiguration)

	list, err := svc.List(ctx, testutil.TestTenantID())
	require.NoError(t, err)
	assert.Empty(t, list)
	ws, err := env.Repos().Warehouses().FindAllForTenant(ctx, testutil.TestTenantID())
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestSupplierService_CreateRejectsInvalidSettings(t *testing.T) {
	_, svc := newSupplierService(t)

	_, err := svc.Create(context.Background(), testutil.TestTenantID(), CreateSupplierRequest{
		Code:          "ACME",
		Name:          "Acme",
		ConnectorType: string(testutil.FakeConnectorType),
		Settings:      partner.ConnectorSettings{BaseURL: "not a url"},
	})
	require.Error(t, err)
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
}

func TestSupplierService_DeactivateTakesVirtualWarehouseDown(t *testing.T) {
	env, svc := newSupplierService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	s, w := env.SeedSupplier(t, tenantID, "ACME")

	got, err := svc.Deactivate(ctx, tenantID, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive())

	w, err = env.Repos().Warehouses().FindByIDForTenant(ctx, tenantID, w.ID)
	require.NoError(t, err)
	assert.False(t, w.IsActive())

	active, err := env.Repos().Suppliers().FindActive(ctx, tenantID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSupplierService_UpdateSettings(t *testing.T) {
	env, svc := newSupplierService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	s, _ := env.SeedSupplier(t, tenantID, "ACME")

	got, err := svc.UpdateSettings(ctx, tenantID, s.ID, partner.ConnectorSettings{
		BaseURL: "https://api.acme.example",
		APIKey:  "k",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.acme.example", got.ConnectorConfig().BaseURL)

	_, err = svc.UpdateSettings(ctx, tenantID, s.ID, partner.ConnectorSettings{Currency: "DOLLARS"})
	assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))

	_, err = svc.UpdateSettings(ctx, tenantID, testutil.NewTestUUID("missing"), partner.ConnectorSettings{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSupplierService_BrandSourceReplacesMapping(t *testing.T) {
	env, svc := newSupplierService(t)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()
	acme, _ := env.SeedSupplier(t, tenantID, "ACME")
	globex, _ := env.SeedSupplier(t, tenantID, "GLOBEX")

	first, err := svc.SetBrandSource(ctx, tenantID, " bosch ", acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "BOSCH", first.Brand)

	second, err := svc.SetBrandSource(ctx, tenantID, "Bosch", globex.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	sources, err := svc.BrandSources(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, globex.ID, sources[0].SupplierID)

	_, err = svc.SetBrandSource(ctx, tenantID, "Makita", testutil.NewTestUUID("nobody"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestWarehouseService_CreateAndPrioritize(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := NewWarehouseService(env.Scope)
	ctx := context.Background()
	tenantID := testutil.TestTenantID()

	main, err := svc.Create(ctx, tenantID, CreateWarehouseRequest{Code: "main", Name: "Main", Priority: 10})
	require.NoError(t, err)
	spare, err := svc.Create(ctx, tenantID, CreateWarehouseRequest{Code: "spare", Name: "Spare", Priority: 5})
	require.NoError(t, err)

	_, err = svc.Create(ctx, tenantID, CreateWarehouseRequest{Code: "MAIN", Name: "Dup"})
	assert.Equal(t, "ALREADY_EXISTS", shared.CodeOf(err))

	_, err = svc.SetPriority(ctx, tenantID, spare.ID, 20)
	require.NoError(t, err)
	list, err := svc.List(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, spare.ID, list[0].ID)

	_, err = svc.Deactivate(ctx, tenantID, main.ID)
	require.NoError(t, err)
	active, err := env.Repos().Warehouses().FindActive(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "SPARE", active[0].Code)
}
