// Package main provides the Episodic API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	starter     web.Starter
	validate    *validator.Validate
}

// NewAPI builds the server. A nil starter disables POST /episodes.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	starter web.Starter,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		starter:     starter,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.starter, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Episodic API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
