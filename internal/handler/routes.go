package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the public and admin routes on e. auth guards the
// routes acting on the caller's own organization.
func RegisterRoutes(e *echo.Echo, orgs *OrganizationHandler, admin *AdminHandler, auth echo.MiddlewareFunc) {
	// Public routes - no authentication required
	e.GET("/", Root)
	e.GET("/health", HealthCheck)

	org := e.Group("/org")
	org.POST("/create", orgs.CreateOrganization)
	org.GET("/get", orgs.GetOrganization)
	org.PUT("/update", orgs.UpdateOrganization, auth)
	org.DELETE("/delete", orgs.DeleteOrganization, auth)

	adminGroup := e.Group("/admin")
	adminGroup.POST("/login", admin.Login)
}
