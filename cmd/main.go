package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aaayushh7/Organization-Management-Service/internal/service"
	"github.com/aaayushh7/Organization-Management-Service/pkg/config"
	"github.com/aaayushh7/Organization-Management-Service/pkg/credential"
	"github.com/aaayushh7/Organization-Management-Service/pkg/jwtutil"
	"github.com/aaayushh7/Organization-Management-Service/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "org-service",
		Short:        "Organization management service",
		Long:         "Provisions organizations with an isolated storage namespace each and issues bound admin sessions.",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newReconcileCmd())
	return root
}

// app holds the wired components shared by every command
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	backend *backend
	service *service.OrganizationService
	gate    *service.Gate
}

func setup(ctx context.Context) (*app, error) {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Info("Configuration loaded", cfg.LogConfig()...)

	return wire(ctx, cfg, log)
}

// wire connects the store and builds the service and gate on top of it
func wire(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	b, err := openBackend(ctx, &cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info("Store connection established", zap.String("driver", cfg.DB.Driver))

	codec, err := credential.NewCodec(cfg.Password.BcryptCost)
	if err != nil {
		b.close()
		return nil, err
	}

	tokens, err := jwtutil.NewJWTUtil(jwtutil.JWTConfig{
		SigningKey: cfg.JWT.SigningKey,
		Expiration: cfg.JWT.Expiration,
	})
	if err != nil {
		b.close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		backend: b,
		service: service.NewOrganizationService(b.registry, b.namespaces, codec, tokens, log, service.Config{
			TokenTTL: tokens.Expiration(),
		}),
		gate: service.NewGate(tokens, b.registry, log),
	}, nil
}

func (a *app) close() {
	if err := a.backend.close(); err != nil {
		a.log.Warn("Failed to close store connection", zap.Error(err))
	}
	a.log.Sync()
}
