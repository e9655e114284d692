package service

import (
	"context"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/stretchr/testify/mock"
)

// MockStore is a registry.Store mock
type MockStore struct {
	mock.Mock
}

func (m *MockStore) organization(args mock.Arguments) (*model.Organization, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organization), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	return m.organization(m.Called(ctx, id))
}

func (m *MockStore) FindByName(ctx context.Context, name string) (*model.Organization, error) {
	return m.organization(m.Called(ctx, name))
}

func (m *MockStore) FindByEmail(ctx context.Context, email string) (*model.Organization, error) {
	return m.organization(m.Called(ctx, email))
}

func (m *MockStore) FindByNamespace(ctx context.Context, namespace string) (*model.Organization, error) {
	return m.organization(m.Called(ctx, namespace))
}

func (m *MockStore) FindByIdentity(ctx context.Context, email, name string) (*model.Organization, error) {
	return m.organization(m.Called(ctx, email, name))
}

func (m *MockStore) Insert(ctx context.Context, org *model.Organization) (string, error) {
	args := m.Called(ctx, org)
	return args.String(0), args.Error(1)
}

func (m *MockStore) UpdateFields(ctx context.Context, id string, upd model.OrganizationUpdate) (*model.Organization, error) {
	return m.organization(m.Called(ctx, id, upd))
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ExistsName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]*model.Organization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Organization), args.Error(1)
}

// MockProvisioner is a namespace.Provisioner mock
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Create(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockProvisioner) Rename(ctx context.Context, oldName, newName string) error {
	return m.Called(ctx, oldName, newName).Error(0)
}

func (m *MockProvisioner) Drop(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockProvisioner) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvisioner) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
