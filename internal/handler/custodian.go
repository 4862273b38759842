package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/service"
)

type CustodianAPI interface {
	Dashboard(ctx context.Context, custodianID uint64) (service.CustodianDashboard, error)
	CreateRoom(ctx context.Context, custodianID uint64, in service.RoomInput) (model.Room, error)
	UpdateRoom(ctx context.Context, custodianID, roomID uint64, in service.RoomInput) (model.Room, error)
	ListPayments(ctx context.Context, custodianID uint64) ([]model.Payment, error)
}

// CustodianBookings is the custodian side of service.BookingService.
type CustodianBookings interface {
	ListForCustodian(ctx context.Context, custodianID uint64, status string) ([]service.BookingView, error)
	SetStatusByCustodian(ctx context.Context, custodianID, bookingID uint64, status, reason string) (model.Booking, error)
}

type CustodianHandler struct {
	base
	Custodians CustodianAPI
	Bookings   CustodianBookings
	// PurgeCatalog drops cached catalog responses after a room changes.
	PurgeCatalog func(ctx context.Context) error
}

func NewCustodianHandler(cs CustodianAPI, bs CustodianBookings, purge func(ctx context.Context) error, log logrus.FieldLogger) *CustodianHandler {
	return &CustodianHandler{base: base{Log: log}, Custodians: cs, Bookings: bs, PurgeCatalog: purge}
}

type bookingStatusReq struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type roomBody struct {
	HostelID   uint64 `json:"hostelId"`
	RoomNumber string `json:"roomNumber" validate:"max=20"`
	RoomType   string `json:"roomType" validate:"max=40"`
	Price      *int64 `json:"price" validate:"omitempty,gte=0"`
	Capacity   *int   `json:"capacity" validate:"omitempty,gte=1,lte=20"`
	IsActive   *bool  `json:"isActive"`
}

func (r roomBody) input() service.RoomInput {
	return service.RoomInput{
		HostelID:   r.HostelID,
		RoomNumber: strings.TrimSpace(r.RoomNumber),
		RoomType:   strings.TrimSpace(r.RoomType),
		Price:      r.Price,
		Capacity:   r.Capacity,
		IsActive:   r.IsActive,
	}
}

// Dashboard handles GET /api/custodian/dashboard.
func (h *CustodianHandler) Dashboard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Custodians.Dashboard(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListBookings handles GET /api/custodian/bookings?status=.
func (h *CustodianHandler) ListBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bs, err := h.Bookings.ListForCustodian(ctx, uid, c.QueryParam("status"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bs)
}

// SetBookingStatus handles PATCH /api/custodian/bookings/:id/status.
func (h *CustodianHandler) SetBookingStatus(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req bookingStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.SetStatusByCustodian(ctx, uid, id, req.Status, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	// occupancy changed, so cached availability is stale
	h.purge(c)
	return c.JSON(http.StatusOK, b)
}

// CreateRoom handles POST /api/custodian/rooms.
func (h *CustodianHandler) CreateRoom(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req roomBody
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.HostelID == 0 || strings.TrimSpace(req.RoomNumber) == "" || req.Price == nil || req.Capacity == nil {
		return badRequest(c, "hostelId, roomNumber, price and capacity are required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rm, err := h.Custodians.CreateRoom(ctx, uid, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, rm)
}

// UpdateRoom handles PUT /api/custodian/rooms/:id.  Omitted fields keep
// their value.
func (h *CustodianHandler) UpdateRoom(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var req roomBody
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rm, err := h.Custodians.UpdateRoom(ctx, uid, id, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, rm)
}

// ListPayments handles GET /api/custodian/payments.
func (h *CustodianHandler) ListPayments(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ps, err := h.Custodians.ListPayments(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *CustodianHandler) purge(c echo.Context) {
	if h.PurgeCatalog == nil {
		return
	}
	if err := h.PurgeCatalog(context.WithoutCancel(c.Request().Context())); err != nil {
		h.logger().WithError(err).Warn("catalog cache purge failed")
	}
}
