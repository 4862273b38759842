package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/service"
)

// PaymentAPI is the part of service.PaymentService the handlers use.
type PaymentAPI interface {
	CreateForBooking(ctx context.Context, studentID, bookingID uint64, in service.PaymentInput) (model.Payment, error)
	GetByTransaction(ctx context.Context, userID uint64, role, txID string) (model.Payment, error)
	ListMine(ctx context.Context, studentID uint64) ([]model.Payment, error)
	HandleMidtransNotification(ctx context.Context, n gateway.MidtransNotification) error
}

type PaymentHandler struct {
	base
	Payments PaymentAPI
}

func NewPaymentHandler(p PaymentAPI, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{base: base{Log: log}, Payments: p}
}

// paymentReq is validated by the service so the minimum-amount check
// always comes first.
type paymentReq struct {
	Amount         float64      `json:"amount"`
	PaymentMethod  string       `json:"paymentMethod"`
	TransactionID  string       `json:"transactionId"`
	PhoneNumber    string       `json:"phoneNumber"`
	Card           gateway.Card `json:"card"`
	ProofOfPayment string       `json:"proofOfPayment"`
}

// CreateForBooking handles POST /api/payments/booking/:bookingId.
func (h *PaymentHandler) CreateForBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bookingID, ok := parseID(c, "bookingId")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkoutTimeout)
	defer cancel()

	p, err := h.Payments.CreateForBooking(ctx, uid, bookingID, service.PaymentInput{
		Amount:         int64(req.Amount), // whole shillings; fractions never reach the minimum
		Method:         model.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		TransactionID:  strings.TrimSpace(req.TransactionID),
		Phone:          strings.TrimSpace(req.PhoneNumber),
		Card:           req.Card,
		ProofOfPayment: strings.TrimSpace(req.ProofOfPayment),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// GetByTransaction handles GET /api/payments/transaction/:transactionId.
func (h *PaymentHandler) GetByTransaction(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	txID := strings.TrimSpace(c.Param("transactionId"))
	if txID == "" {
		return badRequest(c, "transaction id required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	p, err := h.Payments.GetByTransaction(ctx, uid, getRole(c), txID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListMine handles GET /api/payments/my.
func (h *PaymentHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ps, err := h.Payments.ListMine(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ps)
}

// MidtransWebhook handles POST /api/payments/webhook/midtrans.  Any non-2xx
// answer makes Midtrans retry the notification.
func (h *PaymentHandler) MidtransWebhook(c echo.Context) error {
	var n gateway.MidtransNotification
	if err := c.Bind(&n); err != nil || n.OrderID == "" {
		return badRequest(c, "invalid notification")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Payments.HandleMidtransNotification(ctx, n); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
