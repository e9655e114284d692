package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aaayushh7/Organization-Management-Service/internal/middleware"
	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/internal/service"
	"github.com/aaayushh7/Organization-Management-Service/pkg/logger"
	"github.com/aaayushh7/Organization-Management-Service/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OrganizationService is the lifecycle surface the organization routes need
type OrganizationService interface {
	Create(ctx context.Context, name, email, password string) (*model.Organization, error)
	Get(ctx context.Context, name string) (*model.Organization, error)
	Update(ctx context.Context, current *model.Organization, name, email, password string) (*model.Organization, error)
	Delete(ctx context.Context, org *model.Organization) error
}

// OrganizationRequest is the body of create and update requests.
// Update takes the full set of new values, password included.
type OrganizationRequest struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

var errNoOrganization = &service.Error{Kind: service.KindAuthenticationFailure, Message: "Could not validate credentials"}

// OrganizationHandler serves the /org routes
type OrganizationHandler struct {
	service OrganizationService
}

// NewOrganizationHandler creates the organization routes handler
func NewOrganizationHandler(svc OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: svc}
}

func bindOrganizationRequest(c echo.Context) (OrganizationRequest, error) {
	var req OrganizationRequest
	if err := c.Bind(&req); err != nil {
		logger.FromContext(c).Warn("Failed to parse organization request", zap.Error(err))
		return req, &service.Error{Kind: service.KindInvalidInput, Message: "invalid request body", Err: err}
	}
	return req, nil
}

// CreateOrganization handles organization creation
func (h *OrganizationHandler) CreateOrganization(c echo.Context) error {
	prometheus.RecordOrganizationOperation("create")

	req, err := bindOrganizationRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	org, err := h.service.Create(c.Request().Context(), req.OrganizationName, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, NewOrganizationResponse(org))
}

// GetOrganization returns an organization by name
func (h *OrganizationHandler) GetOrganization(c echo.Context) error {
	prometheus.RecordOrganizationOperation("access")

	name := c.QueryParam("organization_name")
	if name == "" {
		return respondError(c, &service.Error{Kind: service.KindInvalidInput, Message: "organization_name is required"})
	}

	org, err := h.service.Get(c.Request().Context(), name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewOrganizationResponse(org))
}

// UpdateOrganization replaces the caller's organization name, email and password
func (h *OrganizationHandler) UpdateOrganization(c echo.Context) error {
	prometheus.RecordOrganizationOperation("update")

	current, ok := middleware.CurrentOrganization(c)
	if !ok {
		return respondError(c, errNoOrganization)
	}

	req, err := bindOrganizationRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	org, err := h.service.Update(c.Request().Context(), current, req.OrganizationName, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, NewOrganizationResponse(org))
}

// DeleteOrganization deletes the caller's organization and its namespace
func (h *OrganizationHandler) DeleteOrganization(c echo.Context) error {
	prometheus.RecordOrganizationOperation("delete")

	current, ok := middleware.CurrentOrganization(c)
	if !ok {
		return respondError(c, errNoOrganization)
	}

	if err := h.service.Delete(c.Request().Context(), current); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"detail": fmt.Sprintf("Organization %s deleted successfully", current.Name),
	})
}
