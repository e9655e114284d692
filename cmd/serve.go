package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaayushh7/Organization-Management-Service/internal/handler"
	"github.com/aaayushh7/Organization-Management-Service/internal/middleware"
	"github.com/aaayushh7/Organization-Management-Service/pkg/logger"
	"github.com/aaayushh7/Organization-Management-Service/prometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			return a.serve(ctx)
		},
	}
}

func (a *app) newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware(a.log))

	e.GET(a.cfg.Metrics.Path, echo.WrapHandler(prometheus.GetPrometheusHandler()))
	handler.RegisterRoutes(e,
		handler.NewOrganizationHandler(a.service),
		handler.NewAdminHandler(a.service),
		middleware.AuthMiddleware(a.gate),
	)
	return e
}

func (a *app) serve(ctx context.Context) error {
	prometheus.SetServiceInfo(version, a.cfg.DB.Driver)
	e := a.newServer()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting server", zap.String("port", a.cfg.Server.Port))
		errCh <- e.Start(":" + a.cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
