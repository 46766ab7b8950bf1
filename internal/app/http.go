package app

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/application-notifier/internal/handler"
	"github.com/kursadbilgin/application-notifier/internal/transport"
)

// NewAPIServer builds the public HTTP API with triggers, admin settings,
// health checks and metrics.
func (c *Container) NewAPIServer() (*fiber.App, error) {
	app := c.newFiberApp("application-notifier-api")

	if err := handler.RegisterTriggerRoutes(app, c.Notifications); err != nil {
		return nil, fmt.Errorf("failed to register trigger routes: %w", err)
	}
	if err := handler.RegisterApplicationRoutes(app, c.Applications); err != nil {
		return nil, fmt.Errorf("failed to register application routes: %w", err)
	}
	if err := handler.RegisterSettingsRoutes(app, c.Settings); err != nil {
		return nil, fmt.Errorf("failed to register settings routes: %w", err)
	}

	return app, nil
}

// NewOpsServer builds the worker's health and metrics listener.
func (c *Container) NewOpsServer() *fiber.App {
	return c.newFiberApp("application-notifier-worker")
}

func (c *Container) newFiberApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(c.Logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(c.Metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, c.SQLDB, c.Redis, c.Broker)
	app.Get("/metrics", adaptor.HTTPHandler(c.Metrics.Handler()))

	return app
}
