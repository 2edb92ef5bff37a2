package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/infrastructure/logger"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/handler"
	"github.com/vde76ru/module-sub000/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithMiddleware adds middleware to the versioned API group only
func WithMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/"+r.apiVersion, r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Config holds what the HTTP stack needs besides the handlers
type Config struct {
	Logger       *zap.Logger
	Version      string
	MaxBodyBytes int64
	// Limiter is optional; nil disables per-tenant rate limiting
	Limiter *middleware.RateLimiter
	Checks  map[string]handler.HealthCheck
	// TraceService, when set, opens a server span per request under that
	// service name
	TraceService string
}

// NewEngine builds the gin engine with request logging, recovery and the
// probes at the root, and the tenant-scoped API under /api/v1.
func NewEngine(cfg Config, registrars ...RouteRegistrar) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if cfg.TraceService != "" {
		engine.Use(otelgin.Middleware(cfg.TraceService))
	}
	engine.Use(logger.GinMiddleware(cfg.Logger), logger.Recovery(cfg.Logger))
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	handler.NewSystemHandler(cfg.Version, cfg.Checks).Register(engine)

	// operator routes under /admin are not tenant scoped
	api := []gin.HandlerFunc{middleware.Tenant("/api/v1/admin")}
	if cfg.Limiter != nil {
		api = append(api, middleware.RateLimit(cfg.Limiter))
	}
	NewRouter(engine, WithMiddleware(api...)).Register(registrars...).Setup()
	return engine
}
