package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/qldp/registry/cmd/registry/container"
	regmw "github.com/qldp/registry/cmd/registry/middleware"
	"github.com/qldp/registry/cmd/registry/routes"
	"github.com/qldp/registry/common/bootstrap"
	"github.com/qldp/registry/common/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bootstrap common components (DB, logger, redis, queue, cache, index, telemetry)
	components, err := bootstrap.Setup(ctx, "registry")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap registry: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(context.Background())

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		components.Logger.Error("Failed to initialize service container", "error", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	if err := run(ctx, e, serviceContainer); err != nil {
		components.Logger.Error("Registry stopped with error", "error", err)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(regmw.RequestContext())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "registry",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "registry",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterHouseholdRoutes(e, serviceContainer)
	routes.RegisterTempAbsentRoutes(e, serviceContainer)
	routes.RegisterReplyRoutes(e, serviceContainer)
}

// run serves HTTP and runs the index sync workers until ctx is cancelled
func run(ctx context.Context, e *echo.Echo, c *container.Container) error {
	log := c.Components.Logger
	port := c.Components.Config.Service.Port
	log.Info("Starting registry", "port", port)
	defer c.Close()

	g, gctx := errgroup.WithContext(ctx)

	if c.Worker != nil {
		g.Go(func() error {
			if err := c.Worker.Start(gctx); err != nil {
				return fmt.Errorf("failed to start index sync worker: %w", err)
			}
			<-gctx.Done()
			log.Info("Index sync worker stopped")
			return nil
		})
	}

	srv := server.New("registry", port, e, log)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	return g.Wait()
}
