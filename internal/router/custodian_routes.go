package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
	"github.com/bookmyhostel/hostel-api/internal/model"
)

// RegisterCustodian registers CUSTODIAN-scoped endpoints under
// /api/custodian.  Every handler checks that the hostel involved is
// managed by the caller.
func RegisterCustodian(e *echo.Echo, h *handler.CustodianHandler, m *handler.MaintenanceHandler, jwtSecret string) {
	g := e.Group(
		"/api/custodian",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustodian),
	)
	g.GET("/dashboard", h.Dashboard)

	g.GET("/bookings", h.ListBookings)
	g.PATCH("/bookings/:id/status", h.SetBookingStatus)

	g.POST("/rooms", h.CreateRoom)
	g.PUT("/rooms/:id", h.UpdateRoom)

	g.GET("/payments", h.ListPayments)

	g.GET("/maintenance", m.ListForCustodian)
	g.PATCH("/maintenance/:id", m.UpdateStatus)
}
