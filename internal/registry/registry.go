// Package registry stores organization records in the shared registry namespace.
//
// Every operation touches a single record. Uniqueness of organization name and
// admin email is the caller's responsibility; backends that can guard the
// name cheaply do so and report ErrDuplicate.
package registry

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record matches a lookup
	ErrNotFound = errors.New("organization not found")
	// ErrDuplicate is returned when a store-level uniqueness guard rejects a write
	ErrDuplicate = errors.New("organization already exists")
)

// Store is the organization registry
type Store interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	FindByName(ctx context.Context, name string) (*model.Organization, error)
	FindByEmail(ctx context.Context, email string) (*model.Organization, error)
	FindByNamespace(ctx context.Context, namespace string) (*model.Organization, error)
	// FindByIdentity matches both the admin email and the organization name exactly.
	FindByIdentity(ctx context.Context, email, name string) (*model.Organization, error)
	// Insert assigns the record ID and returns it.
	Insert(ctx context.Context, org *model.Organization) (string, error)
	// UpdateFields applies upd and returns the record as stored afterwards.
	UpdateFields(ctx context.Context, id string, upd model.OrganizationUpdate) (*model.Organization, error)
	Delete(ctx context.Context, id string) error
	ExistsName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*model.Organization, error)
}

// prepareInsert fills the store-assigned fields of a new record
func prepareInsert(org *model.Organization) {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
}

// filter matches a record during a scan
type filter func(o *model.Organization) bool

func byID(id string) filter {
	return func(o *model.Organization) bool { return o.ID == id }
}

func byName(name string) filter {
	return func(o *model.Organization) bool { return o.Name == name }
}

func byEmail(email string) filter {
	return func(o *model.Organization) bool { return o.AdminEmail == email }
}

func byNamespace(namespace string) filter {
	return func(o *model.Organization) bool { return o.Namespace == namespace }
}

func byIdentity(email, name string) filter {
	return func(o *model.Organization) bool { return o.AdminEmail == email && o.Name == name }
}

// conflicts reports whether candidate would break name or namespace uniqueness against o
func conflicts(o, candidate *model.Organization) bool {
	if o.ID == candidate.ID {
		return false
	}
	return o.Name == candidate.Name || o.Namespace == candidate.Namespace
}

func sortByCreation(orgs []*model.Organization) {
	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].CreatedAt.Equal(orgs[j].CreatedAt) {
			return orgs[i].ID < orgs[j].ID
		}
		return orgs[i].CreatedAt.Before(orgs[j].CreatedAt)
	})
}
