package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
	"github.com/bookmyhostel/hostel-api/internal/model"
)

// RegisterBookings registers booking and payment endpoints.  Routes that
// charge the gateway also pass through the strict per-user limiter.  The
// Midtrans webhook is authenticated by its signature, not a JWT.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, p *handler.PaymentHandler, strict echo.MiddlewareFunc, jwtSecret string) {
	jwt := middleware.JWTAuth(jwtSecret)
	student := middleware.RequireRole(model.RoleStudent)

	g := e.Group("/api/bookings", jwt, student)
	g.POST("", b.Create)
	g.POST("/checkout", b.Checkout, strict)
	g.GET("/my", b.ListMine)
	g.GET("/active", b.Active)
	g.GET("/:id", b.Get)
	g.POST("/:id/cancel", b.Cancel)

	e.POST("/api/payments/webhook/midtrans", p.MidtransWebhook)

	pg := e.Group("/api/payments", jwt)
	pg.POST("/booking/:bookingId", p.CreateForBooking, student, strict)
	pg.GET("/transaction/:transactionId", p.GetByTransaction, middleware.RequireRole(model.RoleStudent, model.RoleCustodian))
	pg.GET("/my", p.ListMine, student)
}
