// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/config"
	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
)

// Handlers is every HTTP handler the API serves.
type Handlers struct {
	Auth        *handler.AuthHandler
	Students    *handler.StudentHandler
	Hostels     *handler.HostelHandler
	Bookings    *handler.BookingHandler
	Payments    *handler.PaymentHandler
	Maintenance *handler.MaintenanceHandler
	Custodian   *handler.CustodianHandler
	Messaging   *handler.MessagingHandler
}

// Options configures the middleware stack.  Redis may be nil, which turns
// the cache and the rate limiter into pass-throughs.
type Options struct {
	JWTSecret string
	Origins   []string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Log       *logrus.Logger
}

// New builds the Echo instance with global middleware and all routes.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(o.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     o.Origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(middleware.NewTokenBucket(o.RateLimit, o.Redis, o.Log))

	RegisterRoutes(e)
	RegisterAuth(e, h.Auth, o.JWTSecret)
	RegisterStudent(e, h.Students, h.Maintenance, o.JWTSecret)
	RegisterCatalog(e, h.Hostels, middleware.NewRedisCache(o.Cache, o.Redis, o.Log), o.JWTSecret)
	RegisterBookings(e, h.Bookings, h.Payments, middleware.NewTokenBucket(middleware.Strict(o.RateLimit), o.Redis, o.Log), o.JWTSecret)
	RegisterCustodian(e, h.Custodian, h.Maintenance, o.JWTSecret)
	RegisterMessaging(e, h.Messaging, o.JWTSecret)
	return e
}

// RegisterRoutes registers the unauthenticated liveness endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/api/test", handler.Test)
}

// RegisterAuth registers login, signup and token endpoints under /api/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token or a bearer, so it is not behind JWTAuth
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))

	e.POST("/api/students/signup", a.StudentSignup)
}
