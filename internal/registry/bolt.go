package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	bolt "go.etcd.io/bbolt"
)

var registryBucket = []byte(model.RegistryCollection)

// BoltStore keeps the registry as JSON documents keyed by id in one bolt bucket.
// Writes are serialized by bolt, so Insert re-checks name uniqueness atomically.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates a registry over db, creating its bucket if missing
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(registryBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to initialize registry bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func forEachOrganization(tx *bolt.Tx, fn func(o *model.Organization) bool) error {
	return tx.Bucket(registryBucket).ForEach(func(k, v []byte) error {
		var o model.Organization
		if err := json.Unmarshal(v, &o); err != nil {
			return fmt.Errorf("corrupt registry record %s: %w", k, err)
		}
		if !fn(&o) {
			return errStopScan
		}
		return nil
	})
}

var errStopScan = errors.New("stop scan")

func findOrganization(tx *bolt.Tx, match filter) (*model.Organization, error) {
	var found *model.Organization
	err := forEachOrganization(tx, func(o *model.Organization) bool {
		if match(o) {
			found = o
			return false
		}
		return true
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *BoltStore) find(ctx context.Context, match filter) (*model.Organization, error) {
	var o *model.Organization
	err := s.db.View(func(tx *bolt.Tx) error {
		org, err := findOrganization(tx, match)
		if err != nil {
			return err
		}
		o = org
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func putOrganization(tx *bolt.Tx, o *model.Organization) error {
	v, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return tx.Bucket(registryBucket).Put([]byte(o.ID), v)
}

// FindByID retrieves an organization by id
func (s *BoltStore) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	var o *model.Organization
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(registryBucket).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		var org model.Organization
		if err := json.Unmarshal(v, &org); err != nil {
			return err
		}
		o = &org
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FindByName retrieves an organization by name
func (s *BoltStore) FindByName(ctx context.Context, name string) (*model.Organization, error) {
	return s.find(ctx, byName(name))
}

// FindByEmail retrieves an organization by admin email
func (s *BoltStore) FindByEmail(ctx context.Context, email string) (*model.Organization, error) {
	return s.find(ctx, byEmail(email))
}

// FindByNamespace retrieves the organization owning a namespace
func (s *BoltStore) FindByNamespace(ctx context.Context, namespace string) (*model.Organization, error) {
	return s.find(ctx, byNamespace(namespace))
}

// FindByIdentity retrieves the organization matching both email and name
func (s *BoltStore) FindByIdentity(ctx context.Context, email, name string) (*model.Organization, error) {
	return s.find(ctx, byIdentity(email, name))
}

// Insert creates a registry record
func (s *BoltStore) Insert(ctx context.Context, org *model.Organization) (string, error) {
	prepareInsert(org)

	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := findOrganization(tx, func(o *model.Organization) bool { return conflicts(o, org) }); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return putOrganization(tx, org)
	})
	if err != nil {
		return "", err
	}
	return org.ID, nil
}

// UpdateFields applies upd to one record
func (s *BoltStore) UpdateFields(ctx context.Context, id string, upd model.OrganizationUpdate) (*model.Organization, error) {
	var updated *model.Organization
	err := s.db.Update(func(tx *bolt.Tx) error {
		o, err := findOrganization(tx, byID(id))
		if err != nil {
			return err
		}
		upd.Apply(o)

		if _, err := findOrganization(tx, func(other *model.Organization) bool { return conflicts(other, o) }); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		updated = o
		return putOrganization(tx, o)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a registry record
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(registryBucket)
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// ExistsName reports whether a record with the name exists
func (s *BoltStore) ExistsName(ctx context.Context, name string) (bool, error) {
	_, err := s.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all records ordered by creation time
func (s *BoltStore) List(ctx context.Context) ([]*model.Organization, error) {
	var orgs []*model.Organization
	err := s.db.View(func(tx *bolt.Tx) error {
		return forEachOrganization(tx, func(o *model.Organization) bool {
			orgs = append(orgs, o)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sortByCreation(orgs)
	return orgs, nil
}
