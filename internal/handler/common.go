// Package handler holds the HTTP handlers.  Handlers bind and validate the
// request, call a service or repository and translate the result into JSON.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the authenticated user id set by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		if t != 0 {
			return t, nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
			return n, nil
		}
	}
	return 0, errNoUser
}

func getRole(c echo.Context) string {
	role, _ := c.Get(middleware.CtxRole).(string)
	return role
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	return id, err == nil && id > 0
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// base carries the logger every handler uses for internal failures.
type base struct {
	Log logrus.FieldLogger
}

func (b base) logger() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}

// fail writes err as a JSON error.  A *service.Error keeps its status and
// message; anything else is logged and reported as a bare 500.
func (b base) fail(c echo.Context, err error) error {
	if se, ok := service.AsError(err); ok {
		body := echo.Map{"error": se.Message}
		if len(se.Details) > 0 {
			body["details"] = se.Details
		}
		return c.JSON(se.Status, body)
	}
	b.logger().WithError(err).WithFields(logrus.Fields{
		"method":     c.Request().Method,
		"path":       c.Request().URL.Path,
		"request_id": c.Get(middleware.CtxRequestID),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// bind decodes the body into dst and runs the registered validator.  The
// returned error is a 400 *service.Error ready for fail.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &service.Error{Status: http.StatusBadRequest, Message: "invalid request body"}
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(dst); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) || len(ves) == 0 {
			return &service.Error{Status: http.StatusBadRequest, Message: "invalid request body"}
		}
		details := make(map[string]string, len(ves))
		for _, fe := range ves {
			details[fe.Field()] = fieldMessage(fe)
		}
		first := ves[0]
		return &service.Error{
			Status:  http.StatusBadRequest,
			Message: first.Field() + " " + fieldMessage(first),
			Details: details,
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "ugphone":
		return "must be a valid Ugandan mobile number"
	case "paymethod":
		return "must be Mobile Money, Credit Card or Bank Transfer"
	case "gte", "lte":
		return "is out of range"
	}
	return "is invalid"
}

// Validator adapts go-playground/validator to echo.Validator.  Field names
// in errors are the JSON names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// both tags accept the empty string; pair them with required where needed
	_ = v.RegisterValidation("ugphone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || gateway.ValidPhone(s)
	})
	_ = v.RegisterValidation("paymethod", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || model.PaymentMethod(s).IsValid()
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }
