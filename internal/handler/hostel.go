package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

type HostelCatalog interface {
	List(ctx context.Context, f repository.HostelFilter) ([]model.Hostel, int, error)
	GetByID(ctx context.Context, id uint64) (model.Hostel, error)
}

type RoomLister interface {
	ListByHostel(ctx context.Context, hostelID uint64, availableOnly bool) ([]model.Room, error)
}

type FavoriteStore interface {
	Add(ctx context.Context, studentID, hostelID uint64) error
	Remove(ctx context.Context, studentID, hostelID uint64) (bool, error)
	List(ctx context.Context, studentID uint64) ([]model.Hostel, error)
}

// HostelHandler serves the public catalog and the student's favorites.
type HostelHandler struct {
	base
	Hostels   HostelCatalog
	Rooms     RoomLister
	Favorites FavoriteStore
}

func NewHostelHandler(hostels HostelCatalog, rooms RoomLister, favorites FavoriteStore, log logrus.FieldLogger) *HostelHandler {
	return &HostelHandler{base: base{Log: log}, Hostels: hostels, Rooms: rooms, Favorites: favorites}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// List handles GET /api/hostels?q=&location=&page=&page_size=.
func (h *HostelHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hostels, total, err := h.Hostels.List(ctx, repository.HostelFilter{
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Location: strings.TrimSpace(c.QueryParam("location")),
		Limit:    size,
		Offset:   (page - 1) * size,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hostels":  hostels,
		"total":    total,
		"page":     page,
		"pageSize": size,
	})
}

// Get handles GET /api/hostels/:id.
func (h *HostelHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hostel, err := h.Hostels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrHostelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Hostel not found"})
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, hostel)
}

// ListRooms handles GET /api/hostels/:id/rooms.  Only bookable rooms are
// listed unless ?available=false.
func (h *HostelHandler) ListRooms(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	availableOnly := c.QueryParam("available") != "false"

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.Hostels.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrHostelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Hostel not found"})
		}
		return h.fail(c, err)
	}
	rooms, err := h.Rooms.ListByHostel(ctx, id, availableOnly)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

// ListFavorites handles GET /api/favorites.
func (h *HostelHandler) ListFavorites(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	hs, err := h.Favorites.List(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, hs)
}

// AddFavorite handles POST /api/favorites/:hostelId.  Saving twice is fine.
func (h *HostelHandler) AddFavorite(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	hostelID, ok := parseID(c, "hostelId")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.Hostels.GetByID(ctx, hostelID); err != nil {
		if errors.Is(err, repository.ErrHostelNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Hostel not found"})
		}
		return h.fail(c, err)
	}
	if err := h.Favorites.Add(ctx, uid, hostelID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveFavorite handles DELETE /api/favorites/:hostelId.
func (h *HostelHandler) RemoveFavorite(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	hostelID, ok := parseID(c, "hostelId")
	if !ok {
		return badRequest(c, "invalid hostel id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	removed, err := h.Favorites.Remove(ctx, uid, hostelID)
	if err != nil {
		return h.fail(c, err)
	}
	if !removed {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Hostel is not in your favorites"})
	}
	return c.NoContent(http.StatusNoContent)
}
