package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the load balancer check.  It returns plain text "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Test is the liveness check the frontend polls.
func Test(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Server is running!"})
}
