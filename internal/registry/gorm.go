package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/aaayushh7/Organization-Management-Service/pkg/database"
	"gorm.io/gorm"
)

// GormStore keeps the registry in the master_organizations table.
// The table carries unique indexes on name and namespace.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a registry over db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the registry table
func (s *GormStore) Migrate() error {
	return database.MigrateModels(s.db, &model.Organization{})
}

func (s *GormStore) findOne(ctx context.Context, query string, args ...interface{}) (*model.Organization, error) {
	var org model.Organization
	err := s.db.WithContext(ctx).Where(query, args...).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query registry: %w", err)
	}
	return &org, nil
}

// FindByID retrieves an organization by id
func (s *GormStore) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	return s.findOne(ctx, "id = ?", id)
}

// FindByName retrieves an organization by name
func (s *GormStore) FindByName(ctx context.Context, name string) (*model.Organization, error) {
	return s.findOne(ctx, "organization_name = ?", name)
}

// FindByEmail retrieves an organization by admin email
func (s *GormStore) FindByEmail(ctx context.Context, email string) (*model.Organization, error) {
	return s.findOne(ctx, "admin_email = ?", email)
}

// FindByNamespace retrieves the organization owning a namespace
func (s *GormStore) FindByNamespace(ctx context.Context, namespace string) (*model.Organization, error) {
	return s.findOne(ctx, "organization_collection = ?", namespace)
}

// FindByIdentity retrieves the organization matching both email and name
func (s *GormStore) FindByIdentity(ctx context.Context, email, name string) (*model.Organization, error) {
	return s.findOne(ctx, "admin_email = ? AND organization_name = ?", email, name)
}

// Insert creates a registry record
func (s *GormStore) Insert(ctx context.Context, org *model.Organization) (string, error) {
	prepareInsert(org)

	err := s.db.WithContext(ctx).Create(org).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert organization: %w", err)
	}
	return org.ID, nil
}

// UpdateFields updates the given columns of one record
func (s *GormStore) UpdateFields(ctx context.Context, id string, upd model.OrganizationUpdate) (*model.Organization, error) {
	if upd.Empty() {
		return s.FindByID(ctx, id)
	}

	result := s.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("id = ?", id).
		Updates(upd.Columns())
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicate
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update organization: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.FindByID(ctx, id)
}

// Delete removes a registry record
func (s *GormStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Organization{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete organization: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsName reports whether a record with the name exists
func (s *GormStore) ExistsName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Organization{}).
		Where("organization_name = ?", name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query registry: %w", err)
	}
	return count > 0, nil
}

// List returns all records ordered by creation time
func (s *GormStore) List(ctx context.Context) ([]*model.Organization, error) {
	var orgs []*model.Organization
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}
