package main

import (
	"context"
	"fmt"

	"github.com/aaayushh7/Organization-Management-Service/internal/namespace"
	"github.com/aaayushh7/Organization-Management-Service/internal/registry"
	"github.com/aaayushh7/Organization-Management-Service/pkg/config"
	"github.com/aaayushh7/Organization-Management-Service/pkg/database"
)

// backend is the registry and namespace provisioner of one store driver
type backend struct {
	registry   registry.Store
	namespaces namespace.Provisioner
	close      func() error
}

// openBackend connects to the configured store. Registry and namespaces
// always share one connection.
func openBackend(ctx context.Context, dbConfig *config.DBConfig) (*backend, error) {
	switch dbConfig.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.OpenGorm(dbConfig)
		if err != nil {
			return nil, err
		}
		store := registry.NewGormStore(db)
		if err := store.Migrate(); err != nil {
			database.CloseGorm(db)
			return nil, err
		}
		return &backend{
			registry:   store,
			namespaces: namespace.NewGormProvisioner(db),
			close:      func() error { return database.CloseGorm(db) },
		}, nil

	case config.DriverBolt:
		db, err := database.OpenBolt(dbConfig.BoltPath)
		if err != nil {
			return nil, err
		}
		store, err := registry.NewBoltStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &backend{
			registry:   store,
			namespaces: namespace.NewBoltProvisioner(db),
			close:      db.Close,
		}, nil

	case config.DriverRedis:
		client, err := database.OpenRedis(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		return &backend{
			registry:   registry.NewRedisStore(client),
			namespaces: namespace.NewRedisProvisioner(client),
			close:      client.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", dbConfig.Driver)
}
