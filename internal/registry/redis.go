package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/go-redis/redis/v8"
)

// maxTxRetries bounds optimistic transaction retries on concurrent writes
const maxTxRetries = 5

// RedisStore keeps the registry as one hash mapping id to a JSON document.
// Writes run under WATCH so a concurrent registry write aborts and retries.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a registry over client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		key:    model.RegistryCollection,
	}
}

func decodeAll(values map[string]string) ([]*model.Organization, error) {
	orgs := make([]*model.Organization, 0, len(values))
	for id, v := range values {
		var o model.Organization
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, fmt.Errorf("corrupt registry record %s: %w", id, err)
		}
		orgs = append(orgs, &o)
	}
	sortByCreation(orgs)
	return orgs, nil
}

// hashReader is satisfied by both *redis.Client and *redis.Tx
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
}

func (s *RedisStore) all(ctx context.Context, cmd hashReader) ([]*model.Organization, error) {
	values, err := cmd.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return decodeAll(values)
}

func (s *RedisStore) find(ctx context.Context, match filter) (*model.Organization, error) {
	orgs, err := s.all(ctx, s.client)
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		if match(o) {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

// transact runs fn under WATCH on the registry key, retrying when another writer interferes
func (s *RedisStore) transact(ctx context.Context, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("registry write aborted after %d retries: %w", maxTxRetries, redis.TxFailedErr)
}

func (s *RedisStore) put(ctx context.Context, tx *redis.Tx, o *model.Organization) error {
	v, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, o.ID, v)
		return nil
	})
	return err
}

// FindByID retrieves an organization by id
func (s *RedisStore) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	v, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var o model.Organization
	if err := json.Unmarshal([]byte(v), &o); err != nil {
		return nil, fmt.Errorf("corrupt registry record %s: %w", id, err)
	}
	return &o, nil
}

// FindByName retrieves an organization by name
func (s *RedisStore) FindByName(ctx context.Context, name string) (*model.Organization, error) {
	return s.find(ctx, byName(name))
}

// FindByEmail retrieves an organization by admin email
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*model.Organization, error) {
	return s.find(ctx, byEmail(email))
}

// FindByNamespace retrieves the organization owning a namespace
func (s *RedisStore) FindByNamespace(ctx context.Context, namespace string) (*model.Organization, error) {
	return s.find(ctx, byNamespace(namespace))
}

// FindByIdentity retrieves the organization matching both email and name
func (s *RedisStore) FindByIdentity(ctx context.Context, email, name string) (*model.Organization, error) {
	return s.find(ctx, byIdentity(email, name))
}

// Insert creates a registry record
func (s *RedisStore) Insert(ctx context.Context, org *model.Organization) (string, error) {
	prepareInsert(org)

	err := s.transact(ctx, func(tx *redis.Tx) error {
		orgs, err := s.all(ctx, tx)
		if err != nil {
			return err
		}
		for _, o := range orgs {
			if conflicts(o, org) {
				return ErrDuplicate
			}
		}
		return s.put(ctx, tx, org)
	})
	if err != nil {
		return "", err
	}
	return org.ID, nil
}

// UpdateFields applies upd to one record
func (s *RedisStore) UpdateFields(ctx context.Context, id string, upd model.OrganizationUpdate) (*model.Organization, error) {
	var updated *model.Organization
	err := s.transact(ctx, func(tx *redis.Tx) error {
		orgs, err := s.all(ctx, tx)
		if err != nil {
			return err
		}

		var target *model.Organization
		for _, o := range orgs {
			if o.ID == id {
				target = o
				break
			}
		}
		if target == nil {
			return ErrNotFound
		}
		upd.Apply(target)

		for _, o := range orgs {
			if conflicts(o, target) {
				return ErrDuplicate
			}
		}

		updated = target
		return s.put(ctx, tx, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a registry record
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsName reports whether a record with the name exists
func (s *RedisStore) ExistsName(ctx context.Context, name string) (bool, error) {
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
func (s *RedisStore) List(ctx context.Context) ([]*model.Organization, error) {
	return s.all(ctx, s.client)
}
