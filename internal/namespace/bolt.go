package namespace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	bolt "go.etcd.io/bbolt"
)

// BoltProvisioner maps every namespace to a top-level bucket
type BoltProvisioner struct {
	db *bolt.DB
}

var _ Provisioner = (*BoltProvisioner)(nil)

// NewBoltProvisioner creates a provisioner over db
func NewBoltProvisioner(db *bolt.DB) *BoltProvisioner {
	return &BoltProvisioner{db: db}
}

// Create creates the namespace bucket and writes the init marker
func (p *BoltProvisioner) Create(ctx context.Context, name string) error {
	marker, err := json.Marshal(model.NewInitMarker(time.Now()))
	if err != nil {
		return err
	}

	err = p.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		if b.Get([]byte(model.InitMarkerKey)) != nil {
			return nil
		}
		return b.Put([]byte(model.InitMarkerKey), marker)
	})
	if err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// Rename moves every document into a new bucket and deletes the old one
func (p *BoltProvisioner) Rename(ctx context.Context, oldName, newName string) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		src := tx.Bucket([]byte(oldName))
		if src == nil {
			return ErrNotFound
		}
		if tx.Bucket([]byte(newName)) != nil {
			return ErrConflict
		}

		dst, err := tx.CreateBucket([]byte(newName))
		if err != nil {
			return err
		}
		err = src.ForEach(func(k, v []byte) error {
			if v == nil {
				return nil
			}
			return dst.Put(append([]byte(nil), k...), append([]byte(nil), v...))
		})
		if err != nil {
			return fmt.Errorf("failed to copy namespace %s: %w", oldName, err)
		}
		return tx.DeleteBucket([]byte(oldName))
	})
}

// Drop deletes the namespace bucket if present
func (p *BoltProvisioner) Drop(ctx context.Context, name string) error {
	err := p.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(name))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to drop namespace %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the namespace bucket exists
func (p *BoltProvisioner) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := p.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket([]byte(name)) != nil
		return nil
	})
	return ok, err
}

// List returns the namespace buckets
func (p *BoltProvisioner) List(ctx context.Context) ([]string, error) {
	var names []string
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return organizationNamespaces(names), nil
}
