package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/procurement"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
	"github.com/vde76ru/module-sub000/internal/infrastructure/telemetry"
	"github.com/vde76ru/module-sub000/tests/testutil"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	tenantID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "procurement", "run",
		telemetry.Attr(telemetry.AttrTenantID, tenantID))
	telemetry.SetAttributes(span, "collected", 3, "elapsed", 1500*time.Millisecond, 42, "skipped")
	telemetry.RecordError(span, errors.New("supplier down"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "procurement.run", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "supplier down", got.Status().Description)
	require.Len(t, got.Events(), 1)

	v, ok := attrValue(got.Attributes(), telemetry.AttrTenantID)
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), v.AsString())
	v, ok = attrValue(got.Attributes(), "collected")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	v, ok = attrValue(got.Attributes(), "elapsed_ms")
	require.True(t, ok)
	assert.Equal(t, int64(1500), v.AsInt64())
}

func TestRecordError_NilIsIgnored(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "noop")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(nil, errors.New("x"))
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
}

func TestNewProviders_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	p, err := telemetry.NewProviders(context.Background(), &config.TelemetryConfig{}, logger, "test")
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
	assert.Same(t, logger, p.WrapLogger(logger))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDBTracing_StatementsAreTraced(t *testing.T) {
	sr := setupTestTracer(t)
	env := testutil.NewEnv(t)
	require.NoError(t, telemetry.NewDBTracing("sqlite", time.Nanosecond, zaptest.NewLogger(t)).Register(env.DB))

	ctx, parent := telemetry.StartSpan(context.Background(), "test.parent")
	env.SeedProduct(t, testutil.TestTenantID(), "CAB-1")
	var n int64
	require.NoError(t, env.DB.WithContext(ctx).Model(&catalog.Product{}).Count(&n).Error)
	parent.End()
	assert.Equal(t, int64(1), n)

	var children int
	for _, s := range sr.Ended() {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			children++
		}
	}
	assert.GreaterOrEqual(t, children, 1, "the count query runs under the parent span")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// sum adds the data points of a counter whose key attribute equals value
func sum(rm metricdata.ResourceMetrics, name, key, value string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestCommerceMetrics_CountsFinishedRuns(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := telemetry.NewCommerceMetrics(mp.Meter("test"), zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()
	tenantID := uuid.New()

	run := procurement.NewRun(tenantID, uuid.New(), "manual")
	run.Collected, run.Reserved, run.Ordered = 5, 2, 3
	run.Finish()
	syncRun := catalog.NewSyncRun(tenantID, uuid.New(), "cron")
	syncRun.Created, syncRun.Updated = 4, 1
	syncRun.RecordError("row-9", errors.New("bad price"))
	syncRun.Finish()

	for _, e := range append(run.GetDomainEvents(), syncRun.GetDomainEvents()...) {
		require.NoError(t, m.Handle(ctx, e))
	}

	rm := collect(t, reader)
	assert.Equal(t, int64(1), sum(rm, "procurement_runs_total", telemetry.AttrStatus, "completed"))
	assert.Equal(t, int64(5), sum(rm, "procurement_run_items_total", "stage", "collected"))
	assert.Equal(t, int64(2), sum(rm, "procurement_run_items_total", "stage", "reserved"))
	assert.Equal(t, int64(3), sum(rm, "procurement_run_items_total", "stage", "ordered"))
	assert.Equal(t, int64(1), sum(rm, "catalog_sync_runs_total", telemetry.AttrStatus, "partial"))
	assert.Equal(t, int64(4), sum(rm, "catalog_sync_rows_total", "outcome", "created"))
	assert.Equal(t, int64(1), sum(rm, "catalog_sync_rows_total", "outcome", "failed"))
	assert.Equal(t, int64(1), sum(rm, "procurement_runs_total", telemetry.AttrTenantID, tenantID.String()))
	assert.Zero(t, sum(rm, "procurement_run_items_total", "stage", "unfulfillable"))
}

func TestNewCommerceMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewCommerceMetrics(nil, nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}
