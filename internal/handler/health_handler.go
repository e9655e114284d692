package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Root handles the service banner endpoint
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Organization Management Service is running",
	})
}

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "organization-service",
	})
}
