package web

import (
	"errors"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func unavailable(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(503).
		WithInstance(c.Path()).
		WithType("unavailable").
		WithDetail(detail)

	return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps service and persistence errors to problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err), errors.Is(err, models.ErrInvalidVisibility):
		return badRequest(c, err.Error())

	case persistence.IsExecutionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, persistence.ErrStoryNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("story_not_found").
			WithDetail("story not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		return internalError(c, err)
	}
}
