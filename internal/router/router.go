package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/health-enrollment/internal/handler/client"
	"github.com/jwalitptl/health-enrollment/internal/handler/dashboard"
	"github.com/jwalitptl/health-enrollment/internal/handler/enrollment"
	"github.com/jwalitptl/health-enrollment/internal/handler/health"
	"github.com/jwalitptl/health-enrollment/internal/handler/program"
	"github.com/jwalitptl/health-enrollment/internal/handler/prometheus"
	"github.com/jwalitptl/health-enrollment/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      *health.Handler
	Clients     *client.Handler
	Programs    *program.Handler
	Enrollments *enrollment.Handler
	Dashboard   *dashboard.Handler
	Metrics     *prometheus.Handler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	MaxBodySize    int64
	CORSConfig     middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultSizeLimitConfig().MaxBodySize
	}

	engine := gin.New()
	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}

	// Logger and metrics wrap Recovery so recovered panics are still
	// logged and counted as 500s.
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		handlers.Metrics.Middleware(),
		middleware.Recovery(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.Use(
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodySize}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.ErrorHandler(),
	)

	return r
}

func (r *Router) Setup() {
	r.handlers.Health.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.handlers.Metrics.Handler())

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Clients.RegisterRoutes(api)
	r.handlers.Programs.RegisterRoutes(api)

	manage := api.Group("/manage")
	r.handlers.Dashboard.RegisterManageRoutes(manage)
	r.handlers.Programs.RegisterManageRoutes(manage)
	r.handlers.Clients.RegisterManageRoutes(manage)
	r.handlers.Enrollments.RegisterManageRoutes(manage)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
