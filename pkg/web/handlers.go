package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Starter records a run in the ledger and executes it in the background.
type Starter interface {
	Start(ctx context.Context, request workflow.RunRequest) (string, error)
}

type APIHandlers struct {
	persistence persistence.Persistence
	starter     Starter
	validator   *validator.Validate
}

// NewAPIHandlers returns the API handlers. starter may be nil, in which case
// POST /episodes answers 503.
func NewAPIHandlers(persistence persistence.Persistence, starter Starter, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		starter:     starter,
		validator:   validator,
	}
}

// Register mounts the API routes on app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	e := app.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/:id", h.GetExecution)

	s := app.Group("/stories")
	s.Get("/", h.GetStories)
	s.Get("/:episode", h.GetStory)

	app.Post("/episodes", h.StartEpisode)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	repository := h.persistence.ExecutionRepository()

	var executions []*models.Execution

	if status := c.Query("status"); status != "" {
		executions, err = repository.ListByStatus(c.Context(), models.ExecutionStatus(status))
		if len(executions) > limit {
			executions = executions[:limit]
		}
	} else {
		executions, err = repository.List(c.Context(), limit)
	}

	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(ExecutionsResponse{Executions: executions, Count: len(executions)})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetStories(c fiber.Ctx) error {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	stories, err := h.persistence.StoryRepository().Recent(c.Context(), limit)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(StoriesResponse{Stories: stories, Count: len(stories)})
}

func (h *APIHandlers) GetStory(c fiber.Ctx) error {
	episode, err := strconv.Atoi(c.Params("episode"))
	if err != nil || episode < 1 {
		return badRequest(c, "Episode must be a positive number")
	}

	story, err := h.persistence.StoryRepository().GetByEpisode(c.Context(), episode)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(story)
}

func (h *APIHandlers) StartEpisode(c fiber.Ctx) error {
	if h.starter == nil {
		return unavailable(c, "Episode generation is not configured")
	}

	var req StartEpisodeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executionID, err := h.starter.Start(c.Context(), workflow.RunRequest{
		Episode:    req.Episode,
		Visibility: models.Visibility(req.Visibility),
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(StartEpisodeResponse{
		ExecutionID: executionID,
		Status:      string(models.ExecutionStatusRunning),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck := "Persistence layer is healthy"
	status := "healthy"
	message := "Episodic API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = "Persistence layer is unhealthy: " + err.Error()
		status = "unhealthy"
		message = "Episodic API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func parseLimit(value string) (int, error) {
	if value == "" {
		return defaultListLimit, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return min(max(limit, 1), maxListLimit), nil
}
