package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/internal/service"
	"github.com/aaayushh7/Organization-Management-Service/pkg/logger"
	"github.com/aaayushh7/Organization-Management-Service/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OrganizationKey is the echo context key holding the authorized organization
const OrganizationKey = "organization"

const unauthorizedMessage = "Could not validate credentials"

// Authorizer resolves a bearer token to a live organization
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*model.Organization, error)
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": unauthorizedMessage})
}

// AuthMiddleware validates the bearer token from the Authorization header
// and stores the organization it is bound to in the context
func AuthMiddleware(gate Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			// Get the Authorization header
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return unauthorized(c)
			}

			// Check if it's a Bearer token
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return unauthorized(c)
			}

			org, err := gate.Authorize(c.Request().Context(), parts[1])
			if err != nil {
				switch {
				case errors.Is(err, service.ErrTokenStale):
					log.Warn("Token bound to a changed or deleted organization")
					prometheus.RecordAuthError("stale_token")
					return unauthorized(c)
				case errors.Is(err, service.ErrUnauthorized):
					log.Warn("Invalid JWT token")
					prometheus.RecordAuthError("invalid_token")
					return unauthorized(c)
				}
				log.Error("Authorization lookup failed", zap.Error(err))
				prometheus.RecordAuthError("db_error")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": service.MessageOf(err)})
			}

			c.Set(OrganizationKey, org)
			log.Debug("Request authenticated",
				zap.String("organization_id", org.ID),
				zap.String("organization_name", org.Name))
			return next(c)
		}
	}
}

// CurrentOrganization returns the organization stored by AuthMiddleware
func CurrentOrganization(c echo.Context) (*model.Organization, bool) {
	org, ok := c.Get(OrganizationKey).(*model.Organization)
	return org, ok && org != nil
}
