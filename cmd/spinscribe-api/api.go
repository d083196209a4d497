// Package main provides the SpinScribe API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/spinscribe/spinscribe/pkg/checkpoint"
	"github.com/spinscribe/spinscribe/pkg/engine"
	"github.com/spinscribe/spinscribe/pkg/registry"
	"github.com/spinscribe/spinscribe/pkg/web"
)

type API struct {
	logger      *slog.Logger
	engine      *engine.Engine
	registry    *registry.Registry
	checkpoints checkpoint.Store
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	eng *engine.Engine,
	registry *registry.Registry,
	checkpoints checkpoint.Store,
) *API {
	return &API{
		logger:      logger,
		engine:      eng,
		registry:    registry,
		checkpoints: checkpoints,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.registry, a.checkpoints, a.validate)

	app := fiber.New()
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("SpinScribe API")
	})

	w := app.Group("/workflows")
	w.Post("/", handlers.StartWorkflow)
	w.Get("/", handlers.ListActiveWorkflows)
	w.Get("/types", handlers.ListWorkflowTypes)
	w.Get("/:id", handlers.GetWorkflowStatus)
	w.Delete("/:id", handlers.CancelWorkflow)
	w.Get("/:id/checkpoints", handlers.ListWorkflowCheckpoints)

	cp := app.Group("/checkpoints")
	cp.Get("/", handlers.ListPendingCheckpoints)
	cp.Get("/:id", handlers.GetCheckpoint)
	cp.Post("/:id/resolve", handlers.ResolveCheckpoint)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
