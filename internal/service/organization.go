// Package service implements the organization lifecycle.
//
// The registry record is the source of truth. Create and Update write the
// registry first and then bring the namespace in line; Delete drops the
// namespace first and then the record. A namespace step that fails after
// the registry write is reported as a store inconsistency and is not rolled
// back; Reconcile and retried deletes repair it.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/internal/namespace"
	"github.com/aaayushh7/Organization-Management-Service/internal/registry"
	"github.com/aaayushh7/Organization-Management-Service/pkg/jwtutil"
	"github.com/aaayushh7/Organization-Management-Service/prometheus"
	"go.uber.org/zap"
)

// TokenTypeBearer is the token type reported with every issued session token
const TokenTypeBearer = "bearer"

// PasswordCodec hashes and verifies admin passwords
type PasswordCodec interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer mints session tokens
type TokenIssuer interface {
	Issue(identity jwtutil.Identity, ttl time.Duration) (string, error)
}

// Config is the immutable configuration of the lifecycle service
type Config struct {
	// TokenTTL is the lifetime of issued session tokens. Zero uses the issuer default.
	TokenTTL time.Duration
}

// Session is the result of a successful admin login
type Session struct {
	Token        string
	TokenType    string
	Organization *model.Organization
}

// OrganizationService coordinates the registry and the namespace provisioner
type OrganizationService struct {
	registry   registry.Store
	namespaces namespace.Provisioner
	passwords  PasswordCodec
	tokens     TokenIssuer
	logger     *zap.Logger
	config     Config
}

// NewOrganizationService creates the lifecycle service
func NewOrganizationService(
	store registry.Store,
	provisioner namespace.Provisioner,
	passwords PasswordCodec,
	tokens TokenIssuer,
	logger *zap.Logger,
	config Config,
) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{
		registry:   store,
		namespaces: provisioner,
		passwords:  passwords,
		tokens:     tokens,
		logger:     logger,
		config:     config,
	}
}

func validateCredentials(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return newError(KindInvalidInput, "organization_name is required", nil)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return newError(KindInvalidInput, "organization_name must not contain control characters", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return newError(KindInvalidInput, "email is not a valid address", err)
	}
	if password == "" {
		return newError(KindInvalidInput, "password is required", nil)
	}
	return nil
}

func storeError(err error) error {
	return newError(KindInternal, "store unavailable", err)
}

// checkNameAvailable rejects a name that is taken, or whose namespace is owned
// by a record other than selfID
func (s *OrganizationService) checkNameAvailable(ctx context.Context, name, selfID string) error {
	exists, err := s.registry.ExistsName(ctx, name)
	if err != nil {
		return storeError(err)
	}
	if exists {
		return newError(KindValidationConflict, "Organization name already exists", nil)
	}

	owner, err := s.registry.FindByNamespace(ctx, model.NamespaceName(name))
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return nil
	case err != nil:
		return storeError(err)
	case owner.ID != selfID:
		return newError(KindValidationConflict, "Organization name already exists", nil)
	}
	return nil
}

func (s *OrganizationService) checkEmailAvailable(ctx context.Context, email, selfID string) error {
	owner, err := s.registry.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return nil
	case err != nil:
		return storeError(err)
	case owner.ID != selfID:
		return newError(KindValidationConflict, "Email already registered", nil)
	}
	return nil
}

// Create registers an organization and provisions its namespace
func (s *OrganizationService) Create(ctx context.Context, name, email, password string) (*model.Organization, error) {
	if err := validateCredentials(name, email, password); err != nil {
		return nil, err
	}
	if err := s.checkNameAvailable(ctx, name, ""); err != nil {
		return nil, err
	}
	if err := s.checkEmailAvailable(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, newError(KindInternal, "failed to hash password", err)
	}

	org := &model.Organization{
		Name:              name,
		Namespace:         model.NamespaceName(name),
		AdminEmail:        email,
		AdminPasswordHash: hash,
	}

	start := time.Now()
	_, err = s.registry.Insert(ctx, org)
	prometheus.TrackDBOperation("insert")(start)
	if errors.Is(err, registry.ErrDuplicate) {
		return nil, newError(KindValidationConflict, "Organization name already exists", err)
	}
	if err != nil {
		return nil, storeError(err)
	}

	if err := s.namespaces.Create(ctx, org.Namespace); err != nil {
		s.logger.Error("Namespace creation failed after registry insert",
			zap.String("organization_id", org.ID),
			zap.String("namespace", org.Namespace),
			zap.Error(err))
		prometheus.RecordStoreInconsistency("create")
		return nil, newError(KindStoreInconsistency, "organization namespace could not be created", err)
	}

	s.logger.Info("Organization created",
		zap.String("organization_id", org.ID),
		zap.String("name", org.Name),
		zap.String("namespace", org.Namespace))
	return org, nil
}

// Authenticate returns the organization whose admin credentials match,
// or nil when the email is unknown or the password is wrong
func (s *OrganizationService) Authenticate(ctx context.Context, email, password string) (*model.Organization, error) {
	org, err := s.registry.FindByEmail(ctx, email)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	if !s.passwords.Verify(password, org.AdminPasswordHash) {
		return nil, nil
	}
	return org, nil
}

// Login authenticates an admin and issues a session token bound to the
// organization's current email and name
func (s *OrganizationService) Login(ctx context.Context, email, password string) (*Session, error) {
	org, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if org == nil {
		prometheus.RecordLogin(false)
		return nil, newError(KindAuthenticationFailure, "Incorrect email or password", nil)
	}

	token, err := s.tokens.Issue(jwtutil.Identity{
		Email:            org.AdminEmail,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
	}, s.config.TokenTTL)
	if err != nil {
		return nil, newError(KindInternal, "failed to issue token", err)
	}

	prometheus.RecordLogin(true)
	return &Session{
		Token:        token,
		TokenType:    TokenTypeBearer,
		Organization: org,
	}, nil
}

// Get returns the organization by name
func (s *OrganizationService) Get(ctx context.Context, name string) (*model.Organization, error) {
	org, err := s.registry.FindByName(ctx, name)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, newError(KindNotFound, "Organization not found", err)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return org, nil
}

// Update replaces the name, email and password of current in one registry
// write and renames the namespace when the derived name changed.
// Tokens issued for the previous email or name stop authorizing.
func (s *OrganizationService) Update(ctx context.Context, current *model.Organization, name, email, password string) (*model.Organization, error) {
	if err := validateCredentials(name, email, password); err != nil {
		return nil, err
	}
	if name != current.Name {
		if err := s.checkNameAvailable(ctx, name, current.ID); err != nil {
			return nil, err
		}
	}
	if email != current.AdminEmail {
		if err := s.checkEmailAvailable(ctx, email, current.ID); err != nil {
			return nil, err
		}
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, newError(KindInternal, "failed to hash password", err)
	}

	newNamespace := model.NamespaceName(name)
	start := time.Now()
	updated, err := s.registry.UpdateFields(ctx, current.ID, model.OrganizationUpdate{
		Name:              &name,
		Namespace:         &newNamespace,
		AdminEmail:        &email,
		AdminPasswordHash: &hash,
	})
	prometheus.TrackDBOperation("update")(start)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return nil, newError(KindNotFound, "Organization not found", err)
	case errors.Is(err, registry.ErrDuplicate):
		return nil, newError(KindValidationConflict, "Organization name already exists", err)
	case err != nil:
		return nil, storeError(err)
	}

	if newNamespace != current.Namespace {
		err := s.namespaces.Rename(ctx, current.Namespace, newNamespace)
		switch {
		case errors.Is(err, namespace.ErrNotFound):
			s.logger.Warn("Namespace missing at rename, treating as synced",
				zap.String("organization_id", current.ID),
				zap.String("old_namespace", current.Namespace),
				zap.String("new_namespace", newNamespace))
		case err != nil:
			s.logger.Error("Namespace rename failed after registry update",
				zap.String("organization_id", current.ID),
				zap.String("old_namespace", current.Namespace),
				zap.String("new_namespace", newNamespace),
				zap.Error(err))
			prometheus.RecordStoreInconsistency("update")
			return nil, newError(KindStoreInconsistency, "organization namespace could not be renamed", err)
		}
	}

	s.logger.Info("Organization updated",
		zap.String("organization_id", updated.ID),
		zap.String("name", updated.Name),
		zap.String("namespace", updated.Namespace))
	return updated, nil
}

// Delete drops the namespace and then removes the registry record.
// Retrying a failed Delete converges.
func (s *OrganizationService) Delete(ctx context.Context, org *model.Organization) error {
	if err := s.namespaces.Drop(ctx, org.Namespace); err != nil {
		s.logger.Error("Namespace drop failed",
			zap.String("organization_id", org.ID),
			zap.String("namespace", org.Namespace),
			zap.Error(err))
		prometheus.RecordStoreInconsistency("delete")
		return newError(KindStoreInconsistency, "organization namespace could not be dropped", err)
	}

	start := time.Now()
	err := s.registry.Delete(ctx, org.ID)
	prometheus.TrackDBOperation("delete")(start)
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		s.logger.Error("Registry delete failed after namespace drop",
			zap.String("organization_id", org.ID),
			zap.String("namespace", org.Namespace),
			zap.Error(err))
		prometheus.RecordStoreInconsistency("delete")
		return newError(KindStoreInconsistency, "organization record could not be deleted", err)
	}

	s.logger.Info("Organization deleted",
		zap.String("organization_id", org.ID),
		zap.String("name", org.Name))
	return nil
}
