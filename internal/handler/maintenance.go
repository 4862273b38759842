package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/service"
)

type MaintenanceAPI interface {
	Create(ctx context.Context, studentID uint64, in service.MaintenanceInput) (model.MaintenanceRequest, error)
	ListMine(ctx context.Context, studentID uint64) ([]model.MaintenanceRequest, error)
	ListForCustodian(ctx context.Context, custodianID uint64, status string) ([]model.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, custodianID, id uint64, status string) (model.MaintenanceRequest, error)
}

type MaintenanceHandler struct {
	base
	Requests MaintenanceAPI
}

func NewMaintenanceHandler(m MaintenanceAPI, log logrus.FieldLogger) *MaintenanceHandler {
	return &MaintenanceHandler{base: base{Log: log}, Requests: m}
}

type maintenanceReq struct {
	Category    string `json:"category" validate:"required"`
	RoomNumber  string `json:"roomNumber" validate:"max=20"`
	Description string `json:"description" validate:"required"`
}

type maintenanceStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// Create handles POST /api/maintenance.
func (h *MaintenanceHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req maintenanceReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Requests.Create(ctx, uid, service.MaintenanceInput{
		Category:    req.Category,
		RoomNumber:  req.RoomNumber,
		Description: req.Description,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// ListMine handles GET /api/maintenance/my-requests.
func (h *MaintenanceHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ms, err := h.Requests.ListMine(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ms)
}

// ListForCustodian handles GET /api/custodian/maintenance?status=.
func (h *MaintenanceHandler) ListForCustodian(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ms, err := h.Requests.ListForCustodian(ctx, uid, c.QueryParam("status"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ms)
}

// UpdateStatus handles PATCH /api/custodian/maintenance/:id.
func (h *MaintenanceHandler) UpdateStatus(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	var req maintenanceStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Requests.UpdateStatus(ctx, uid, id, req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
