package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pabloosss/Urlopy/internal/config"
	"github.com/pabloosss/Urlopy/internal/http/handlers"
	"github.com/pabloosss/Urlopy/internal/http/middlewares"
	"github.com/pabloosss/Urlopy/internal/observability"
)

const maxBodyBytes = 1 << 20 // 1 MiB is plenty for any payload we accept

// Deps carries everything the router wires together. main assembles it once.
type Deps struct {
	Cfg  config.Config
	Log  *slog.Logger
	Prom *observability.Prom
	Reg  *prometheus.Registry

	Auth   *middlewares.AuthMiddleware
	Ping   func() error
	Tracer bool // attach otelgin when the exporter is configured

	AuthHandler   *handlers.AuthHandler
	LeavesHandler *handlers.LeavesHandler
	UsersHandler  *handlers.UsersHandler
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	if d.Tracer {
		r.Use(otelgin.Middleware("urlopy-api"))
	}

	// health + metrics stay unauthenticated
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Reg, promhttp.HandlerOpts{})))
	}

	loginLimiter := middlewares.NewRateLimiter(d.Cfg.RateLimit, d.Cfg.RateLimitWindow)
	r.POST("/auth/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), d.AuthHandler.Login)

	apiLimiter := middlewares.NewRateLimiter(d.Cfg.RateLimit, d.Cfg.RateLimitWindow)

	authed := r.Group("/")
	authed.Use(d.Auth.RequireAuth())
	authed.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	authed.GET("/me", d.AuthHandler.Me)
	authed.GET("/me/balance", d.UsersHandler.MyBalance)

	authed.POST("/leaves", d.LeavesHandler.Create)
	authed.GET("/leaves", d.LeavesHandler.List)
	authed.GET("/leaves/:id", d.LeavesHandler.Get)
	authed.PATCH("/leaves/:id", d.LeavesHandler.Patch)
	authed.DELETE("/leaves/:id", d.LeavesHandler.Delete)
	authed.POST("/leaves/:id/decision", d.LeavesHandler.Decide)

	authed.GET("/users", d.UsersHandler.List)
	authed.GET("/users/:id", d.UsersHandler.Get)
	authed.GET("/users/:id/balance", d.UsersHandler.Balance)

	// user writes are admin only; the service enforces it again
	adminOnly := authed.Group("/")
	adminOnly.Use(d.Auth.RequireRole("admin"))
	adminOnly.POST("/users", d.UsersHandler.Create)
	adminOnly.PATCH("/users/:id", d.UsersHandler.Patch)
	adminOnly.DELETE("/users/:id", d.UsersHandler.Delete)
	adminOnly.POST("/users/:id/balance/adjust", d.UsersHandler.AdjustBalance)

	return r
}
