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

// StudentAPI is the part of service.StudentService the handlers use.
type StudentAPI interface {
	Profile(ctx context.Context, userID uint64) (model.Student, error)
	UpdateProfile(ctx context.Context, userID uint64, in service.ProfileInput) (model.Student, error)
	Dashboard(ctx context.Context, userID uint64) (service.Dashboard, error)
}

type StudentHandler struct {
	base
	Students StudentAPI
}

func NewStudentHandler(s StudentAPI, log logrus.FieldLogger) *StudentHandler {
	return &StudentHandler{base: base{Log: log}, Students: s}
}

// profileReq is the personal, academic and emergency block of the booking
// form.  It is also the body of PUT /api/students/profile.
type profileReq struct {
	FullName                 string `json:"fullName" validate:"max=120"`
	Phone                    string `json:"phone" validate:"ugphone"`
	Gender                   string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	University               string `json:"university" validate:"max=120"`
	Course                   string `json:"course" validate:"max=120"`
	YearOfStudy              int    `json:"yearOfStudy" validate:"gte=0,lte=10"`
	StudentNumber            string `json:"studentNumber" validate:"max=40"`
	EmergencyContactName     string `json:"emergencyContactName" validate:"max=120"`
	EmergencyContactPhone    string `json:"emergencyContactPhone" validate:"ugphone"`
	EmergencyContactRelation string `json:"emergencyContactRelation" validate:"max=60"`
}

func (p profileReq) input() service.ProfileInput {
	return service.ProfileInput{
		FullName:          strings.TrimSpace(p.FullName),
		Phone:             strings.TrimSpace(p.Phone),
		Gender:            p.Gender,
		University:        strings.TrimSpace(p.University),
		Course:            strings.TrimSpace(p.Course),
		YearOfStudy:       p.YearOfStudy,
		StudentNumber:     strings.TrimSpace(p.StudentNumber),
		EmergencyName:     strings.TrimSpace(p.EmergencyContactName),
		EmergencyPhone:    strings.TrimSpace(p.EmergencyContactPhone),
		EmergencyRelation: strings.TrimSpace(p.EmergencyContactRelation),
	}
}

// GetProfile handles GET /api/students/profile.
func (h *StudentHandler) GetProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Students.Profile(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// UpdateProfile handles PUT /api/students/profile.  Empty fields keep their
// stored value.
func (h *StudentHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Students.UpdateProfile(ctx, uid, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Dashboard handles GET /api/students/dashboard.
func (h *StudentHandler) Dashboard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Students.Dashboard(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
