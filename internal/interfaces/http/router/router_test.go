package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vde76ru/module-sub000/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		id, _ := middleware.GetTenantID(c)
		c.String(http.StatusOK, id.String())
	})
	rg.GET("/admin/ping", func(c *gin.Context) { c.String(http.StatusOK, "admin") })
}

func serve(engine *gin.Engine, path string, tenant string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup_AppliesGroupMiddleware(t *testing.T) {
	engine := gin.New()
	mw := func(c *gin.Context) {
		c.Header("X-Group", "applied")
		c.Next()
	}
	NewRouter(engine, WithAPIVersion("v2"), WithMiddleware(mw)).Register(pingRoutes{}).Setup()

	w := serve(engine, "/api/v2/admin/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", w.Header().Get("X-Group"))
}

func TestNewEngine(t *testing.T) {
	tenant := uuid.New()
	engine := NewEngine(Config{Version: "test", MaxBodyBytes: 1 << 10}, pingRoutes{})

	t.Run("health needs no tenant", func(t *testing.T) {
		w := serve(engine, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"version":"test"`)
	})

	t.Run("ready without checks", func(t *testing.T) {
		w := serve(engine, "/health/ready", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("api requires tenant", func(t *testing.T) {
		w := serve(engine, "/api/v1/ping", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "TENANT_REQUIRED")
	})

	t.Run("tenant reaches handlers", func(t *testing.T) {
		w := serve(engine, "/api/v1/ping", tenant.String())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tenant.String(), w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("admin skips tenant", func(t *testing.T) {
		w := serve(engine, "/api/v1/admin/ping", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestNewEngine_RateLimitsPerTenant(t *testing.T) {
	engine := NewEngine(Config{Limiter: middleware.NewRateLimiter(0.001, 1)}, pingRoutes{})
	a, b := uuid.NewString(), uuid.NewString()

	assert.Equal(t, http.StatusOK, serve(engine, "/api/v1/ping", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(engine, "/api/v1/ping", a).Code)
	assert.Equal(t, http.StatusOK, serve(engine, "/api/v1/ping", b).Code)
}

func TestNewEngine_TracesRequests(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	engine := NewEngine(Config{TraceService: "commerce-test"}, pingRoutes{})
	assert.Equal(t, http.StatusOK, serve(engine, "/api/v1/ping", uuid.NewString()).Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())

	untraced := NewEngine(Config{}, pingRoutes{})
	serve(untraced, "/api/v1/ping", uuid.NewString())
	assert.Len(t, sr.Ended(), 1)
}
