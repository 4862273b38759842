package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
	"github.com/bookmyhostel/hostel-api/internal/model"
)

// RegisterStudent registers the STUDENT-only profile, dashboard and
// maintenance endpoints.  Signup lives with the auth routes.
func RegisterStudent(e *echo.Echo, s *handler.StudentHandler, m *handler.MaintenanceHandler, jwtSecret string) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStudent)}

	g := e.Group("/api/students", auth...)
	g.GET("/profile", s.GetProfile)
	g.PUT("/profile", s.UpdateProfile)
	g.GET("/dashboard", s.Dashboard)

	mg := e.Group("/api/maintenance", auth...)
	mg.POST("", m.Create)
	mg.GET("/my-requests", m.ListMine)
}
