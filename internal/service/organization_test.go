package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/internal/namespace"
	"github.com/aaayushh7/Organization-Management-Service/internal/registry"
	"github.com/aaayushh7/Organization-Management-Service/pkg/config"
	"github.com/aaayushh7/Organization-Management-Service/pkg/credential"
	"github.com/aaayushh7/Organization-Management-Service/pkg/database"
	"github.com/aaayushh7/Organization-Management-Service/pkg/jwtutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

type fixture struct {
	svc    *OrganizationService
	gate   *Gate
	store  registry.Store
	ns     namespace.Provisioner
	tokens *jwtutil.JWTUtil
	now    time.Time
	logger *zap.Logger
	codec  *credential.Codec
}

// storeBackend opens a registry and provisioner sharing one store connection
type storeBackend func(t *testing.T) (registry.Store, namespace.Provisioner)

func openGormBackend(t *testing.T) (registry.Store, namespace.Provisioner) {
	t.Helper()
	db, err := database.OpenGorm(&config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "service.db"),
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseGorm(db) })

	store := registry.NewGormStore(db)
	require.NoError(t, store.Migrate())
	return store, namespace.NewGormProvisioner(db)
}

func openBoltBackend(t *testing.T) (registry.Store, namespace.Provisioner) {
	t.Helper()
	db, err := database.OpenBolt(filepath.Join(t.TempDir(), "service.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := registry.NewBoltStore(db)
	require.NoError(t, err)
	return store, namespace.NewBoltProvisioner(db)
}

func openRedisBackend(t *testing.T) (registry.Store, namespace.Provisioner) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return registry.NewRedisStore(client), namespace.NewRedisProvisioner(client)
}

var backends = map[string]storeBackend{
	"gorm":  openGormBackend,
	"bolt":  openBoltBackend,
	"redis": openRedisBackend,
}

// forEachBackend runs fn against a fresh fixture over every store backend
func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, newBackendFixture(t, open, nil))
		})
	}
}

func newCodec(t *testing.T) *credential.Codec {
	t.Helper()
	codec, err := credential.NewCodec(bcrypt.MinCost)
	require.NoError(t, err)
	return codec
}

// newFixture wires the service over a bolt file. provisioner overrides the bolt provisioner when set.
func newFixture(t *testing.T, provisioner namespace.Provisioner) *fixture {
	t.Helper()
	return newBackendFixture(t, openBoltBackend, provisioner)
}

func newBackendFixture(t *testing.T, open storeBackend, provisioner namespace.Provisioner) *fixture {
	t.Helper()
	store, ns := open(t)
	if provisioner == nil {
		provisioner = ns
	}

	f := &fixture{
		store:  store,
		ns:     provisioner,
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		logger: zaptest.NewLogger(t),
		codec:  newCodec(t),
	}
	var err error
	f.tokens, err = jwtutil.NewJWTUtil(
		jwtutil.JWTConfig{SigningKey: "test-signing-key", Expiration: 30 * time.Minute},
		jwtutil.WithClock(func() time.Time { return f.now }),
	)
	require.NoError(t, err)

	f.svc = f.serviceOver(provisioner)
	f.gate = NewGate(f.tokens, store, f.logger)
	return f
}

// serviceOver builds a second service on the fixture's registry with another provisioner
func (f *fixture) serviceOver(provisioner namespace.Provisioner) *OrganizationService {
	return NewOrganizationService(f.store, provisioner, f.codec, f.tokens, f.logger, Config{TokenTTL: 30 * time.Minute})
}

func (f *fixture) create(t *testing.T, name, email, password string) *model.Organization {
	t.Helper()
	org, err := f.svc.Create(context.Background(), name, email, password)
	require.NoError(t, err)
	return org
}

func (f *fixture) namespaceExists(t *testing.T, name string) bool {
	t.Helper()
	ok, err := f.ns.Exists(context.Background(), name)
	require.NoError(t, err)
	return ok
}

func TestCreate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		org := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")
		assert.NotEmpty(t, org.ID)
		assert.Equal(t, "TestCorp", org.Name)
		assert.Equal(t, "org_testcorp", org.Namespace)
		assert.Equal(t, "admin@testcorp.com", org.AdminEmail)
		assert.NotEqual(t, "pw123", org.AdminPasswordHash)
		assert.False(t, org.CreatedAt.IsZero())

		assert.True(t, f.namespaceExists(t, "org_testcorp"))

		stored, err := f.store.FindByName(ctx, "TestCorp")
		require.NoError(t, err)
		assert.Equal(t, org.ID, stored.ID)
		assert.Equal(t, model.NamespaceName(stored.Name), stored.Namespace)
	})
}

func TestCreateDerivesNamespaceFromWhitespace(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		org := f.create(t, "Acme Widgets", "admin@acme.com", "pw")
		assert.Equal(t, "org_acme_widgets", org.Namespace)
		assert.True(t, f.namespaceExists(t, "org_acme_widgets"))
	})
}

func TestLifecycleWithPunctuatedNames(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		tests := []struct {
			name      string
			renamed   string
			namespace string
		}{
			{name: "Acme Inc.", renamed: "Acme Inc. Ltd", namespace: "org_acme_inc."},
			{name: "a.b", renamed: "a.b.c", namespace: "org_a.b"},
			{name: "Foo`Bar", renamed: "Foo`Baz", namespace: "org_foo`bar"},
			{name: `Say "Hi"`, renamed: `Say "Bye"`, namespace: `org_say_"hi"`},
			{name: "x-y", renamed: "x-z", namespace: "org_x-y"},
		}
		for i, tt := range tests {
			email := fmt.Sprintf("admin%d@example.com", i)
			org := f.create(t, tt.name, email, "pw")
			assert.Equal(t, tt.namespace, org.Namespace)
			assert.True(t, f.namespaceExists(t, tt.namespace), tt.name)

			updated, err := f.svc.Update(ctx, org, tt.renamed, email, "pw")
			require.NoError(t, err, tt.name)
			assert.False(t, f.namespaceExists(t, tt.namespace), tt.name)
			assert.True(t, f.namespaceExists(t, updated.Namespace), tt.name)

			require.NoError(t, f.svc.Delete(ctx, updated), tt.name)
			assert.False(t, f.namespaceExists(t, updated.Namespace), tt.name)
		}

		names, err := f.ns.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestCreateRejectsConflicts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

		tests := []struct {
			name    string
			orgName string
			email   string
		}{
			{name: "same name", orgName: "TestCorp", email: "other@testcorp.com"},
			{name: "same derived namespace", orgName: "testcorp", email: "other@testcorp.com"},
			{name: "same email", orgName: "OtherCorp", email: "admin@testcorp.com"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Create(context.Background(), tt.orgName, tt.email, "pw")
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConflict)
				assert.Equal(t, KindValidationConflict, KindOf(err))
			})
		}

		orgs, err := f.store.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, orgs, 1)
	})
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name     string
		orgName  string
		email    string
		password string
	}{
		{name: "empty name", orgName: "  ", email: "admin@testcorp.com", password: "pw"},
		{name: "control character", orgName: "Test\x00Corp", email: "admin@testcorp.com", password: "pw"},
		{name: "newline", orgName: "Test\nCorp", email: "admin@testcorp.com", password: "pw"},
		{name: "invalid email", orgName: "TestCorp", email: "not-an-email", password: "pw"},
		{name: "display name email", orgName: "TestCorp", email: "Admin <admin@testcorp.com>", password: "pw"},
		{name: "empty password", orgName: "TestCorp", email: "admin@testcorp.com", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.orgName, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCreateNamespaceFailureIsInconsistency(t *testing.T) {
	ns := new(MockProvisioner)
	f := newFixture(t, ns)
	cause := errors.New("store offline")
	ns.On("Create", mock.Anything, "org_testcorp").Return(cause)

	_, err := f.svc.Create(context.Background(), "TestCorp", "admin@testcorp.com", "pw123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "organization namespace could not be created", MessageOf(err))

	// the registry insert is not rolled back
	stored, err := f.store.FindByName(context.Background(), "TestCorp")
	require.NoError(t, err)
	assert.Equal(t, "org_testcorp", stored.Namespace)
	ns.AssertExpectations(t)
}

func TestAuthenticate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		created := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

		org, err := f.svc.Authenticate(ctx, "admin@testcorp.com", "pw123")
		require.NoError(t, err)
		require.NotNil(t, org)
		assert.Equal(t, created.ID, org.ID)

		org, err = f.svc.Authenticate(ctx, "admin@testcorp.com", "wrong")
		require.NoError(t, err)
		assert.Nil(t, org)

		org, err = f.svc.Authenticate(ctx, "nobody@testcorp.com", "pw123")
		require.NoError(t, err)
		assert.Nil(t, org)
	})
}

func TestAuthenticateStoreFailure(t *testing.T) {
	store := new(MockStore)
	svc := NewOrganizationService(store, new(MockProvisioner), newCodec(t), nil, nil, Config{})
	store.On("FindByEmail", mock.Anything, "admin@testcorp.com").Return(nil, errors.New("connection reset"))

	org, err := svc.Authenticate(context.Background(), "admin@testcorp.com", "pw123")
	assert.Nil(t, org)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	store.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		created := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

		session, err := f.svc.Login(ctx, "admin@testcorp.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, TokenTypeBearer, session.TokenType)
		assert.Equal(t, created.ID, session.Organization.ID)

		identity, ok := f.tokens.Verify(session.Token)
		require.True(t, ok)
		assert.Equal(t, "admin@testcorp.com", identity.Email)
		assert.Equal(t, created.ID, identity.OrganizationID)
		assert.Equal(t, "TestCorp", identity.OrganizationName)
		assert.True(t, f.now.Add(30*time.Minute).Equal(identity.ExpiresAt))

		_, err = f.svc.Login(ctx, "admin@testcorp.com", "wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = f.svc.Login(ctx, "nobody@testcorp.com", "pw123")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, "Incorrect email or password", MessageOf(err))
	})
}

func TestGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		created := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

		org, err := f.svc.Get(context.Background(), "TestCorp")
		require.NoError(t, err)
		assert.Equal(t, created.ID, org.ID)

		_, err = f.svc.Get(context.Background(), "testcorp")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateRenamesNamespace(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		current := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

		updated, err := f.svc.Update(ctx, current, "NewCorp", "admin@newcorp.com", "pw456")
		require.NoError(t, err)
		assert.Equal(t, current.ID, updated.ID)
		assert.Equal(t, "NewCorp", updated.Name)
		assert.Equal(t, "org_newcorp", updated.Namespace)
		assert.Equal(t, "admin@newcorp.com", updated.AdminEmail)
		assert.WithinDuration(t, current.CreatedAt, updated.CreatedAt, time.Second)

		assert.False(t, f.namespaceExists(t, "org_testcorp"))
		assert.True(t, f.namespaceExists(t, "org_newcorp"))

		org, err := f.svc.Authenticate(ctx, "admin@newcorp.com", "pw456")
		require.NoError(t, err)
		require.NotNil(t, org)
		org, err = f.svc.Authenticate(ctx, "admin@newcorp.com", "pw123")
		require.NoError(t, err)
		assert.Nil(t, org)
	})
}

func TestUpdateSameNameKeepsNamespace(t *testing.T) {
	ns := new(MockProvisioner)
	f := newFixture(t, ns)
	ns.On("Create", mock.Anything, "org_testcorp").Return(nil)
	current := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

	// a case-only rename derives the same namespace, which current already owns
	for _, name := range []string{"TestCorp", "TESTCORP"} {
		updated, err := f.svc.Update(context.Background(), current, name, "admin@testcorp.com", "pw456")
		require.NoError(t, err)
		assert.Equal(t, "org_testcorp", updated.Namespace)
		current = updated
	}

	ns.AssertNotCalled(t, "Rename", mock.Anything, mock.Anything, mock.Anything)
	ns.AssertExpectations(t)
}

func TestUpdateRejectsConflicts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.create(t, "TestCorp", "admin@testcorp.com", "pw123")
		current := f.create(t, "OtherCorp", "admin@othercorp.com", "pw123")

		_, err := f.svc.Update(ctx, current, "TestCorp", "admin@othercorp.com", "pw")
		assert.ErrorIs(t, err, ErrConflict)
		_, err = f.svc.Update(ctx, current, "testcorp", "admin@othercorp.com", "pw")
		assert.ErrorIs(t, err, ErrConflict)
		_, err = f.svc.Update(ctx, current, "OtherCorp", "admin@testcorp.com", "pw")
		assert.ErrorIs(t, err, ErrConflict)

		stored, err := f.store.FindByID(ctx, current.ID)
		require.NoError(t, err)
		assert.Equal(t, "OtherCorp", stored.Name)
		assert.Equal(t, "admin@othercorp.com", stored.AdminEmail)
	})
}

func TestUpdateToleratesMissingNamespace(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		current := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")
		require.NoError(t, f.ns.Drop(ctx, "org_testcorp"))

		updated, err := f.svc.Update(ctx, current, "NewCorp", "admin@testcorp.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, "org_newcorp", updated.Namespace)
		assert.False(t, f.namespaceExists(t, "org_newcorp"))
	})
}

func TestUpdateRenameFailureIsInconsistency(t *testing.T) {
	ns := new(MockProvisioner)
	f := newFixture(t, ns)
	ctx := context.Background()
	ns.On("Create", mock.Anything, "org_testcorp").Return(nil)
	ns.On("Rename", mock.Anything, "org_testcorp", "org_newcorp").Return(namespace.ErrConflict)
	current := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

	_, err := f.svc.Update(ctx, current, "NewCorp", "admin@newcorp.com", "pw123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.ErrorIs(t, err, namespace.ErrConflict)

	// the registry write stands
	stored, err := f.store.FindByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, "NewCorp", stored.Name)
	assert.Equal(t, "org_newcorp", stored.Namespace)
	ns.AssertExpectations(t)
}

func TestDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		org := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")

		require.NoError(t, f.svc.Delete(ctx, org))
		assert.False(t, f.namespaceExists(t, "org_testcorp"))
		_, err := f.svc.Get(ctx, "TestCorp")
		assert.ErrorIs(t, err, ErrNotFound)

		// retrying converges
		require.NoError(t, f.svc.Delete(ctx, org))

		// name and email are free again
		f.create(t, "TestCorp", "admin@testcorp.com", "pw123")
	})
}

func TestDeleteFailures(t *testing.T) {
	org := &model.Organization{ID: "org-1", Name: "TestCorp", Namespace: "org_testcorp", AdminEmail: "admin@testcorp.com"}

	t.Run("namespace drop", func(t *testing.T) {
		store := new(MockStore)
		ns := new(MockProvisioner)
		svc := NewOrganizationService(store, ns, newCodec(t), nil, zaptest.NewLogger(t), Config{})
		ns.On("Drop", mock.Anything, "org_testcorp").Return(errors.New("drop failed"))

		err := svc.Delete(context.Background(), org)
		assert.ErrorIs(t, err, ErrInconsistent)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		ns.AssertExpectations(t)
	})

	t.Run("registry delete", func(t *testing.T) {
		store := new(MockStore)
		ns := new(MockProvisioner)
		svc := NewOrganizationService(store, ns, newCodec(t), nil, zaptest.NewLogger(t), Config{})
		ns.On("Drop", mock.Anything, "org_testcorp").Return(nil)
		store.On("Delete", mock.Anything, "org-1").Return(errors.New("write failed"))

		err := svc.Delete(context.Background(), org)
		assert.ErrorIs(t, err, ErrInconsistent)
		assert.Equal(t, "organization record could not be deleted", MessageOf(err))
		store.AssertExpectations(t)
		ns.AssertExpectations(t)
	})
}

// A token issued before an identity-changing update stops authorizing;
// logging in with the new credentials yields one that does.
func TestIdentityChangeInvalidatesTokens(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		created := f.create(t, "TestCorp", "admin@testcorp.com", "pw123")
		assert.Equal(t, "org_testcorp", created.Namespace)

		sessionA, err := f.svc.Login(ctx, "admin@testcorp.com", "pw123")
		require.NoError(t, err)
		current, err := f.gate.Authorize(ctx, sessionA.Token)
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, current, "NewCorp", "admin@newcorp.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, "org_newcorp", updated.Namespace)
		assert.True(t, f.namespaceExists(t, "org_newcorp"))

		// still correctly signed and unexpired
		_, ok := f.tokens.Verify(sessionA.Token)
		require.True(t, ok)
		_, err = f.gate.Authorize(ctx, sessionA.Token)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, ErrTokenStale)

		_, err = f.svc.Login(ctx, "admin@testcorp.com", "pw123")
		assert.ErrorIs(t, err, ErrUnauthorized)

		sessionB, err := f.svc.Login(ctx, "admin@newcorp.com", "pw123")
		require.NoError(t, err)
		current, err = f.gate.Authorize(ctx, sessionB.Token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, current.ID)

		require.NoError(t, f.svc.Delete(ctx, current))
		_, err = f.svc.Get(ctx, "NewCorp")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.gate.Authorize(ctx, sessionB.Token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestPartialIdentityChangeInvalidatesTokens(t *testing.T) {
	tests := []struct {
		name    string
		orgName string
		email   string
	}{
		{name: "email only", orgName: "TestCorp", email: "new@testcorp.com"},
		{name: "name only", orgName: "NewCorp", email: "admin@testcorp.com"},
		{name: "case-only name", orgName: "TESTCORP", email: "admin@testcorp.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachBackend(t, func(t *testing.T, f *fixture) {
				ctx := context.Background()
				f.create(t, "TestCorp", "admin@testcorp.com", "pw123")
				before, err := f.svc.Login(ctx, "admin@testcorp.com", "pw123")
				require.NoError(t, err)
				current, err := f.gate.Authorize(ctx, before.Token)
				require.NoError(t, err)

				_, err = f.svc.Update(ctx, current, tt.orgName, tt.email, "pw123")
				require.NoError(t, err)

				_, err = f.gate.Authorize(ctx, before.Token)
				assert.ErrorIs(t, err, ErrUnauthorized)
				assert.ErrorIs(t, err, ErrTokenStale)

				after, err := f.svc.Login(ctx, tt.email, "pw123")
				require.NoError(t, err)
				org, err := f.gate.Authorize(ctx, after.Token)
				require.NoError(t, err)
				assert.Equal(t, tt.orgName, org.Name)
			})
		})
	}
}
