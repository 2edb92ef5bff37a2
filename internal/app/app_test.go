package app_test

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/app"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
	"github.com/vde76ru/module-sub000/internal/infrastructure/scheduler"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/handler"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	body := fmt.Sprintf(`
[database]
driver = "sqlite"
sqlite_path = %q

[scheduler]
enabled = true
workers = 1
status_poll_cron = "-"

[event]
processor_enabled = true
poll_interval = "50ms"
`, filepath.Join(t.TempDir(), "app.db")) + extra

	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(body)))
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func newApp(t *testing.T, extra string) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), testConfig(t, extra), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_UnknownConnectorFailsFast(t *testing.T) {
	_, err := app.New(context.Background(), testConfig(t, "\n[connectors]\nenabled = [\"http_json\", \"soap\"]\n"), zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, shared.CodeConfiguration, shared.CodeOf(err))
	assert.Contains(t, err.Error(), "soap")
}

func TestApp_ReadinessReportsDatabase(t *testing.T) {
	a := newApp(t, "")
	engine := a.HTTPHandler("test")

	w := testutil.Do(t, engine, http.MethodGet, "/health/ready", nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := testutil.JSONResponse(t, w)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.NotContains(t, checks, "redis")
}

func TestApp_JobRouter(t *testing.T) {
	a := newApp(t, "")
	router := a.JobRouter()
	ctx := context.Background()

	err := router.Execute(ctx, scheduler.NewJob(scheduler.JobKindSupplierSync, testutil.TestTenantID(), uuid.New(), "manual", 0))
	assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))

	err = router.Execute(ctx, scheduler.NewJob(scheduler.JobKindProcurement, testutil.TestTenantID(), uuid.New(), "manual", 0))
	assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))

	// nothing sent yet, so a polling pass is a no-op
	require.NoError(t, router.Execute(ctx, scheduler.NewJob(scheduler.JobKindStatusPoll, uuid.Nil, uuid.Nil, "schedule", 0)))

	err = router.Execute(ctx, scheduler.NewJob("reindex", uuid.Nil, uuid.Nil, "manual", 0))
	assert.ErrorIs(t, err, scheduler.ErrUnknownJobKind)
}

func TestApp_JobsRunUnderSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	a := newApp(t, "")
	assert.False(t, a.Telemetry.Enabled())
	channelID := uuid.New()
	err := a.JobRouter().Execute(context.Background(),
		scheduler.NewJob(scheduler.JobKindProcurement, testutil.TestTenantID(), channelID, "manual", 0))
	require.Error(t, err)

	var found bool
	for _, s := range sr.Ended() {
		if s.Name() != "procurement.run" {
			continue
		}
		found = true
		assert.Equal(t, codes.Error, s.Status().Code)
		for _, kv := range s.Attributes() {
			if kv.Key == "job.target_id" {
				assert.Equal(t, channelID.String(), kv.Value.AsString())
			}
		}
	}
	assert.True(t, found, "procurement job span recorded")
}

type priceLinks struct {
	Data []handler.PriceLinkResponse `json:"data"`
}

func TestApp_RulesChangeRepricesThroughOutbox(t *testing.T) {
	a := newApp(t, "")
	engine := a.HTTPHandler("test")
	env := &testutil.Env{DB: a.Database.DB, Scope: a.Scope, Outbox: a.Outbox, Logger: zap.NewNop()}
	tenantID := testutil.TestTenantID()
	supplier, _ := env.SeedSupplier(t, tenantID, "ACME")
	product := env.SeedProduct(t, tenantID, "SKU-1")
	env.SeedOffer(t, product, supplier, "100", "5")

	rules := func(markup string) map[string]any {
		return map[string]any{
			"markup_type":           "percentage",
			"markup_value":          markup,
			"additional_expenses":   "0",
			"commission_percentage": "0",
			"rounding_rule":         "none",
			"reference_currency":    "RUB",
		}
	}
	w := testutil.Do(t, engine, http.MethodPost, "/api/v1/channels", map[string]any{
		"code": "wb", "name": "Wildberries", "marketplace": "wildberries", "pricing_rules": rules("20"),
	}, tenantID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	channelID := testutil.JSONResponse(t, w)["data"].(map[string]any)["id"].(string)

	w = testutil.Do(t, engine, http.MethodPut, "/api/v1/channels/"+channelID+"/pricing-rules", rules("50"), tenantID)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	testutil.RequireEventually(t, func() bool {
		w := testutil.Do(t, engine, http.MethodGet, "/api/v1/prices/products/"+product.ID.String(), nil, tenantID)
		if w.Code != http.StatusOK {
			return false
		}
		resp := testutil.JSONResponseAs[priceLinks](t, w)
		return len(resp.Data) == 1 && resp.Data[0].Price != nil && resp.Data[0].Price.StringFixed(2) == "150.00"
	}, 5*time.Second, 50*time.Millisecond, "rules change should reprice the channel")
}

func TestApp_StopWithoutStart(t *testing.T) {
	a := newApp(t, "")
	assert.NoError(t, a.Stop(context.Background()))
}
