package httptransport

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/srivastavahk/TaskFlow/internal/ratelimit"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/handler"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/middleware"
)

// PublicRoutes are reachable without a Principal. Everything else routed
// answers 401 to anonymous callers.
var PublicRoutes = []string{
	"/auth/register",
	"/auth/login",
	"/auth/refresh",
	"/health",
	"/health/ready",
	"/docs/openapi.json",
}

type Handlers struct {
	Auth    *handler.AuthHandler
	Team    *handler.TeamHandler
	Health  *handler.HealthHandler
	OpenAPI *handler.OpenAPIHandler
}

type Options struct {
	CORSAllowedOrigins []string
	// HSTS adds Strict-Transport-Security; off for plain-HTTP local runs.
	HSTS bool

	// Limiter throttles /auth/login and /auth/register; nil disables it.
	Limiter         ratelimit.Limiter
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

func NewRouter(logger *slog.Logger, tokens middleware.TokenVerifier, users middleware.UserFinder, h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Security(opts.HSTS))
	r.Use(cors.New(corsConfig(opts.CORSAllowedOrigins)))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Authenticate(tokens, users, logger))
	r.Use(middleware.RequirePrincipal(PublicRoutes...))
	r.NoRoute(handler.NoRoute)

	throttle := func(name string) gin.HandlersChain {
		if opts.Limiter == nil {
			return nil
		}
		return gin.HandlersChain{middleware.RateLimit(opts.Limiter, name, opts.LoginRateLimit, opts.LoginRateWindow, logger)}
	}

	auth := r.Group("/auth")
	auth.POST("/register", append(throttle("register"), h.Auth.Register)...)
	auth.POST("/login", append(throttle("login"), h.Auth.Login)...)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.GET("/me", h.Auth.Me)

	teams := r.Group("/teams")
	teams.POST("", h.Team.Create)
	teams.GET("", h.Team.List)
	teams.POST("/invite/accept", h.Team.AcceptInvite)
	teams.GET("/:id", h.Team.Get)
	teams.GET("/:id/members", h.Team.Members)
	teams.POST("/:id/invite", h.Team.Invite)

	r.GET("/health", h.Health.Liveness)
	r.GET("/health/ready", h.Health.Readiness)
	r.GET("/docs/openapi.json", h.OpenAPI.Serve)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}
