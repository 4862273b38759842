package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
	"github.com/bookmyhostel/hostel-api/internal/model"
)

// RegisterCatalog registers the public hostel catalog and the student's
// favorites.  Hostel listings go through the response cache; room lists
// carry live occupancy and are always read from the database.
func RegisterCatalog(e *echo.Echo, h *handler.HostelHandler, cache echo.MiddlewareFunc, jwtSecret string) {
	g := e.Group("/api/hostels")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)
	g.GET("/:id/rooms", h.ListRooms)

	f := e.Group("/api/favorites", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStudent))
	f.GET("", h.ListFavorites)
	f.POST("/:hostelId", h.AddFavorite)
	f.DELETE("/:hostelId", h.RemoveFavorite)
}
