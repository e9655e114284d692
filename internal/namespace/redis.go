package namespace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "namespace:"
	scanCount = 100
)

// RedisProvisioner maps every namespace to a hash under namespace:<name>
type RedisProvisioner struct {
	client *redis.Client
}

var _ Provisioner = (*RedisProvisioner)(nil)

// NewRedisProvisioner creates a provisioner over client
func NewRedisProvisioner(client *redis.Client) *RedisProvisioner {
	return &RedisProvisioner{client: client}
}

func namespaceKey(name string) string {
	return keyPrefix + name
}

// Create writes the init marker, creating the hash
func (p *RedisProvisioner) Create(ctx context.Context, name string) error {
	marker, err := json.Marshal(model.NewInitMarker(time.Now()))
	if err != nil {
		return err
	}
	if err := p.client.HSetNX(ctx, namespaceKey(name), model.InitMarkerKey, marker).Err(); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// Rename relabels the hash with RENAMENX
func (p *RedisProvisioner) Rename(ctx context.Context, oldName, newName string) error {
	n, err := p.client.Exists(ctx, namespaceKey(oldName)).Result()
	if err != nil {
		return fmt.Errorf("failed to rename namespace %s: %w", oldName, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	ok, err := p.client.RenameNX(ctx, namespaceKey(oldName), namespaceKey(newName)).Result()
	if err != nil {
		// the source vanished between EXISTS and RENAMENX
		if strings.Contains(err.Error(), "no such key") {
			return ErrNotFound
		}
		return fmt.Errorf("failed to rename namespace %s to %s: %w", oldName, newName, err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// Drop deletes the hash
func (p *RedisProvisioner) Drop(ctx context.Context, name string) error {
	if err := p.client.Del(ctx, namespaceKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to drop namespace %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the hash exists
func (p *RedisProvisioner) Exists(ctx context.Context, name string) (bool, error) {
	n, err := p.client.Exists(ctx, namespaceKey(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List scans for namespace keys
func (p *RedisProvisioner) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := p.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return organizationNamespaces(names), nil
}
