// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/config"
	"github.com/iliyamo/chinor-crm/internal/handler"
	"github.com/iliyamo/chinor-crm/internal/middleware"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth       *handler.AuthHandler
	Guests     *handler.GuestHandler
	Bookings   *handler.BookingHandler
	Broadcasts *handler.BroadcastHandler
	Settings   *handler.SettingsHandler
	Dashboard  *handler.DashboardHandler
	Users      *handler.UserHandler
	Public     *handler.PublicHandler
	Health     echo.HandlerFunc
}

// Options carries the cross-cutting settings for route registration.
// Redis may be nil, which disables rate limiting and response caching.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Redis       *redis.Client
	Log         *zap.Logger
}

// New builds the echo instance with global middleware and every route.
func New(h Handlers, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(opt.Log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(opt.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opt.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
	}))

	RegisterRoutes(e, h.Health)
	limit := middleware.RateLimit(opt.RateLimit, opt.Redis, opt.Log)
	RegisterAuth(e, h.Auth, opt.JWTSecret, limit)
	RegisterPublic(e, h.Public, limit)
	cache := middleware.ResponseCache(opt.Cache, opt.Redis, opt.Log)
	RegisterStaff(e, h, opt.JWTSecret, cache)
	RegisterAdmin(e, h, opt.JWTSecret)
	return e
}

// RegisterRoutes registers the probe and metrics endpoints.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers login, which is rate limited, and the
// authenticated /api/auth/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login, limit)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated QR form endpoints.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/api/public", limit)
	g.POST("/guest", p.CreateGuest)
	g.POST("/booking", p.CreateBooking)
}
