package handler

import (
	"context"
	"net/http"

	"github.com/aaayushh7/Organization-Management-Service/internal/service"
	"github.com/aaayushh7/Organization-Management-Service/pkg/logger"
	"github.com/aaayushh7/Organization-Management-Service/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Authenticator issues admin sessions
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.Session, error)
}

// LoginRequest is the admin login body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

// AdminHandler serves the /admin routes
type AdminHandler struct {
	auth Authenticator
}

// NewAdminHandler creates the admin routes handler
func NewAdminHandler(auth Authenticator) *AdminHandler {
	return &AdminHandler{auth: auth}
}

// Login handles admin login
func (h *AdminHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return respondError(c, &service.Error{Kind: service.KindInvalidInput, Message: "invalid request body", Err: err})
	}
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_login")
		return respondError(c, &service.Error{Kind: service.KindInvalidInput, Message: "email and password are required"})
	}

	session, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if service.KindOf(err) == service.KindAuthenticationFailure {
			prometheus.RecordAuthError("login_failure")
		}
		return respondError(c, err)
	}

	log.Info("Admin logged in",
		zap.String("email", session.Organization.AdminEmail),
		zap.String("organization_id", session.Organization.ID))
	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken:      session.Token,
		TokenType:        session.TokenType,
		OrganizationID:   session.Organization.ID,
		OrganizationName: session.Organization.Name,
	})
}
