package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/service"
)

// checkoutTimeout covers the simulated gateway delay and the gateway
// timeout on top of the database work.
const checkoutTimeout = 30 * time.Second

// BookingAPI is the student side of service.BookingService.
type BookingAPI interface {
	Create(ctx context.Context, studentID uint64, ref service.RoomRef) (model.Booking, error)
	Checkout(ctx context.Context, studentID uint64, in service.CheckoutInput) (service.CheckoutResult, error)
	ListMine(ctx context.Context, studentID uint64) ([]service.BookingView, error)
	Active(ctx context.Context, studentID uint64) (*model.Booking, error)
	Get(ctx context.Context, studentID, bookingID uint64) (service.BookingView, error)
	Cancel(ctx context.Context, studentID, bookingID uint64, reason string) (model.Booking, error)
}

type BookingHandler struct {
	base
	Bookings BookingAPI
}

func NewBookingHandler(b BookingAPI, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{base: base{Log: log}, Bookings: b}
}

// roomReq names the room by ids or by hostel name and room number.
type roomReq struct {
	HostelID   uint64 `json:"hostelId"`
	HostelName string `json:"hostelName" validate:"max=120"`
	RoomID     uint64 `json:"roomId"`
	RoomNumber string `json:"roomNumber" validate:"max=20"`
}

func (r roomReq) ref() service.RoomRef {
	return service.RoomRef{
		HostelID:   r.HostelID,
		HostelName: strings.TrimSpace(r.HostelName),
		RoomID:     r.RoomID,
		RoomNumber: strings.TrimSpace(r.RoomNumber),
	}
}

func (r roomReq) empty() bool {
	ref := r.ref()
	return ref.RoomID == 0 && (ref.RoomNumber == "" || (ref.HostelID == 0 && ref.HostelName == ""))
}

type checkoutReq struct {
	roomReq
	profileReq
	PaymentMethod  string       `json:"paymentMethod" validate:"required,paymethod"`
	PhoneNumber    string       `json:"phoneNumber" validate:"ugphone"`
	Card           gateway.Card `json:"card"`
	ProofOfPayment string       `json:"proofOfPayment" validate:"max=255"`
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Create handles POST /api/bookings.  The booking is BOOKED and unpaid.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req roomReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.empty() {
		return badRequest(c, "roomId, or hostel and roomNumber, are required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, uid, req.ref())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Checkout handles POST /api/bookings/checkout: the booking form and the
// payment in one request.
func (h *BookingHandler) Checkout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req checkoutReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.roomReq.empty() {
		return badRequest(c, "roomId, or hostel and roomNumber, are required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkoutTimeout)
	defer cancel()

	profile := req.profileReq.input()
	res, err := h.Bookings.Checkout(ctx, uid, service.CheckoutInput{
		Room:           req.roomReq.ref(),
		Profile:        &profile,
		PaymentMethod:  model.PaymentMethod(req.PaymentMethod),
		Phone:          strings.TrimSpace(req.PhoneNumber),
		Card:           req.Card,
		ProofOfPayment: strings.TrimSpace(req.ProofOfPayment),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMine handles GET /api/bookings/my.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	bs, err := h.Bookings.ListMine(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bs)
}

// Active handles GET /api/bookings/active.  The body is
// {"booking": null} when the student has no active booking.
func (h *BookingHandler) Active(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Active(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Get(ctx, uid, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req cancelReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.Bookings.Cancel(ctx, uid, id, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
