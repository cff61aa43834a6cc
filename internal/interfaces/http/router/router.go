// Package router assembles the event ingress engine.
package router

import (
	"net/http"
	"time"

	"github.com/erp/replicator/internal/infrastructure/auth"
	"github.com/erp/replicator/internal/infrastructure/config"
	"github.com/erp/replicator/internal/infrastructure/logger"
	"github.com/erp/replicator/internal/interfaces/http/handler"
	"github.com/erp/replicator/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages versioned API route registration
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
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered by Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// NotificationRoutes serves the notification websocket
type NotificationRoutes struct {
	Hub http.Handler
}

// RegisterRoutes registers GET /notifications
func (n NotificationRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", gin.WrapH(n.Hub))
}

// Deps are the components the engine routes to
type Deps struct {
	Events        handler.EventDispatcher
	Notifications http.Handler
	Health        handler.HealthSources
	Tokens        *auth.TokenService      // nil disables bearer auth
	RateLimiter   *middleware.RateLimiter // nil disables rate limiting
}

// NewEngine builds the gin engine of the event ingress
func NewEngine(cfg *config.Config, deps Deps, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()

	// Order: request id, recovery, logging, tracing, CORS, body limit, rate limit, auth
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if deps.RateLimiter != nil {
		engine.Use(middleware.RateLimit(deps.RateLimiter))
	}
	if deps.Tokens != nil {
		engine.Use(middleware.BearerAuth(deps.Tokens, "/health"))
	}

	engine.GET("/health", handler.NewHealthHandler(deps.Health).Health)

	r := NewRouter(engine)
	if deps.Events != nil {
		r.Register(handler.NewEventHandler(deps.Events))
	}
	if deps.Notifications != nil {
		r.Register(NotificationRoutes{Hub: deps.Notifications})
	}
	r.Setup()

	return engine
}
