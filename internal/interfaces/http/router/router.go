// Package router assembles the gin engine: middleware stack and routes.
package router

import (
	"github.com/fintrack/backend/internal/infrastructure/auth"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/interfaces/http/handler"
	"github.com/fintrack/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthPath is served outside the versioned API and skips tracing
const HealthPath = "/health"

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
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
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/{version}
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one area behind shared middleware
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle("GET", path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle("POST", path, handlers)
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Config holds everything the engine is built from
type Config struct {
	Logger         *zap.Logger
	Tokens         middleware.TokenValidator
	Webhook        *handler.WebhookHandler
	Sync           *handler.SyncHandler
	Health         *handler.HealthHandler
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine builds the gin engine with the full middleware stack, the
// webhook route and the sync API
func NewEngine(cfg Config) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	cfg.Tracing.SkipPaths = append(cfg.Tracing.SkipPaths, HealthPath)
	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger, HealthPath),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanEnricher(),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET(HealthPath, cfg.Health.Health)

	r := NewRouter(engine)
	r.Register(webhookRoutes(cfg.Webhook))
	r.Register(syncRoutes(cfg))
	r.Setup()
	return engine, nil
}

func webhookRoutes(h *handler.WebhookHandler) *DomainGroup {
	return NewDomainGroup("webhook", "/webhook").
		POST("", h.HandleWebhook)
}

// syncRoutes: routes without :userId act on the caller, the rest need the
// read or admin permission
func syncRoutes(cfg Config) *DomainGroup {
	h := cfg.Sync
	canRead := middleware.RequireAnyPermission(cfg.Logger, auth.PermissionSyncRead, auth.PermissionSyncAdmin)
	canAdmin := middleware.RequireAnyPermission(cfg.Logger, auth.PermissionSyncAdmin)

	return NewDomainGroup("sync", "/sync").
		Use(middleware.JWTAuthMiddleware(cfg.Tokens, cfg.Logger)).
		GET("/status", h.GetStatus).
		GET("/status/:userId", canRead, h.GetStatus).
		GET("/logs", h.ListLogs).
		GET("/logs/:userId", canRead, h.ListLogs).
		GET("/stats", canRead, h.GetStats).
		GET("/users/pending", canRead, h.ListPendingUsers).
		POST("", h.RetrySync).
		POST("/bulk", canAdmin, h.BulkSync).
		POST("/:userId", canAdmin, h.RetrySync)
}
