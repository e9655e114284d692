package service

import (
	"context"
	"errors"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/internal/registry"
	"github.com/aaayushh7/Organization-Management-Service/pkg/jwtutil"
	"go.uber.org/zap"
)

// Causes wrapped by authorization failures. Clients only ever see the shared message.
var (
	ErrTokenInvalid = errors.New("token failed verification")
	ErrTokenStale   = errors.New("token identity matches no live organization")
)

const unauthorizedMessage = "Could not validate credentials"

// TokenVerifier checks session tokens
type TokenVerifier interface {
	Verify(token string) (jwtutil.Identity, bool)
}

// Gate resolves a session token to the organization it is bound to
type Gate struct {
	tokens   TokenVerifier
	registry registry.Store
	logger   *zap.Logger
}

// NewGate creates an authentication gate
func NewGate(tokens TokenVerifier, store registry.Store, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, registry: store, logger: logger}
}

// Authorize returns the live organization matching both the email and the
// organization name carried by token. A valid signature alone is not enough:
// after an identity-changing update the lookup misses and the token is refused.
func (g *Gate) Authorize(ctx context.Context, token string) (*model.Organization, error) {
	identity, ok := g.tokens.Verify(token)
	if !ok {
		return nil, newError(KindAuthenticationFailure, unauthorizedMessage, ErrTokenInvalid)
	}

	org, err := g.registry.FindByIdentity(ctx, identity.Email, identity.OrganizationName)
	if errors.Is(err, registry.ErrNotFound) {
		g.logger.Debug("Token identity matches no live organization",
			zap.String("email", identity.Email),
			zap.String("organization_name", identity.OrganizationName))
		return nil, newError(KindAuthenticationFailure, unauthorizedMessage, ErrTokenStale)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return org, nil
}
