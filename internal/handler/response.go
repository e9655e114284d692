package handler

import (
	"net/http"
	"time"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/internal/service"
	"github.com/aaayushh7/Organization-Management-Service/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OrganizationResponse is the public view of an organization. The password hash is never exposed.
type OrganizationResponse struct {
	OrganizationName       string    `json:"organization_name"`
	Email                  string    `json:"email"`
	OrganizationCollection string    `json:"organization_collection"`
	AdminID                string    `json:"admin_id"`
	CreatedAt              time.Time `json:"created_at"`
}

// NewOrganizationResponse builds the public view of org
func NewOrganizationResponse(org *model.Organization) OrganizationResponse {
	return OrganizationResponse{
		OrganizationName:       org.Name,
		Email:                  org.AdminEmail,
		OrganizationCollection: org.Namespace,
		AdminID:                org.ID,
		CreatedAt:              org.CreatedAt,
	}
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidationConflict:
		return http.StatusBadRequest
	case service.KindAuthenticationFailure:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindStoreInconsistency:
		return http.StatusServiceUnavailable
	case service.KindInvalidInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the client-facing view of err. Causes are logged, never returned.
func respondError(c echo.Context, err error) error {
	log := logger.FromContext(c)
	kind := service.KindOf(err)
	status := statusFor(kind)

	switch kind {
	case service.KindAuthenticationFailure:
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	case service.KindStoreInconsistency:
		c.Response().Header().Set(echo.HeaderRetryAfter, "1")
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("kind", kind.String()), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("kind", kind.String()), zap.String("reason", service.MessageOf(err)))
	}
	return c.JSON(status, echo.Map{"error": service.MessageOf(err)})
}
