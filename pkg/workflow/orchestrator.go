package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/eventbus"
	"github.com/dukex/episodic/pkg/events"
	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/otelhelper"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/stages/publish"
	"github.com/dukex/episodic/pkg/stages/story"
	"github.com/dukex/episodic/pkg/stages/video"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrPanic wraps a panic recovered while walking the graph.
var ErrPanic = errors.New("workflow panicked")

// RunRequest starts one episode run. A nil Episode is assigned from the history.
type RunRequest struct {
	Episode    *int
	Visibility models.Visibility
}

// Dependencies of an Orchestrator. History and EventBus are optional.
type Dependencies struct {
	Config     *config.Config
	Story      *story.Stage
	Video      *video.Stage
	Publish    *publish.Stage
	Executions persistence.ExecutionRepository

	// History keeps the story history as a document when no database is configured.
	History  persistence.HistoryStore
	EventBus eventbus.EventBus
	Tracer   trace.Tracer
}

// Orchestrator runs the episode graph and keeps the execution ledger.
type Orchestrator struct {
	config     *config.Config
	story      *story.Stage
	video      *video.Stage
	publish    *publish.Stage
	executions persistence.ExecutionRepository
	history    persistence.HistoryStore
	eventBus   eventbus.EventBus
	tracer     trace.Tracer
	logger     *slog.Logger
	graph      *Graph
	now        func() time.Time
	newID      func() string
}

func NewOrchestrator(logger *slog.Logger, deps Dependencies) *Orchestrator {
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("episodic")
	}

	bus := deps.EventBus
	if bus == nil {
		bus = eventbus.NoopEventBus{}
	}

	o := &Orchestrator{
		config:     deps.Config,
		story:      deps.Story,
		video:      deps.Video,
		publish:    deps.Publish,
		executions: deps.Executions,
		history:    deps.History,
		eventBus:   bus,
		tracer:     tracer,
		logger:     logger.With("module", "workflow"),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}

	o.graph = o.buildGraph()

	return o
}

// WithClock replaces the time source.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now

	return o
}

func (o *Orchestrator) buildGraph() *Graph {
	return NewGraph(models.StepLoadHistory).
		AddNode(models.StepLoadHistory, o.step(models.StepLoadHistory, o.loadHistory)).
		AddNode(models.StepGenerateStory, o.step(models.StepGenerateStory, o.generateStory)).
		AddNode(models.StepGenerateVideos, o.step(models.StepGenerateVideos, o.generateVideos)).
		AddNode(models.StepUpload, o.step(models.StepUpload, o.upload)).
		AddNode(models.StepSaveHistory, o.step(models.StepSaveHistory, o.saveHistory)).
		AddNode(models.StepHandleError, o.handleError).
		AddEdge(models.StepLoadHistory, models.StepGenerateStory).
		AddConditionalEdge(models.StepGenerateStory, continueUnless(models.StepGenerateVideos, func(s *models.WorkflowState) bool {
			return s.Story != nil
		})).
		AddConditionalEdge(models.StepGenerateVideos, continueUnless(models.StepUpload, func(s *models.WorkflowState) bool {
			return s.FinalVideoPath != ""
		})).
		AddConditionalEdge(models.StepUpload, continueUnless(models.StepSaveHistory, func(s *models.WorkflowState) bool {
			return s.UploadResult != nil
		})).
		AddEdge(models.StepSaveHistory, End).
		AddEdge(models.StepHandleError, End)
}

// Run executes one episode run to completion.
func (o *Orchestrator) Run(ctx context.Context, request RunRequest) (*models.WorkflowState, error) {
	state, err := o.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	return o.execute(ctx, state)
}

// Start records the run in the ledger and executes it in the background. The
// run outlives ctx cancellation; its outcome is only visible in the ledger.
func (o *Orchestrator) Start(ctx context.Context, request RunRequest) (string, error) {
	state, err := o.prepare(ctx, request)
	if err != nil {
		return "", err
	}

	go func() {
		runCtx := context.WithoutCancel(ctx)

		if _, err := o.execute(runCtx, state); err != nil {
			o.logger.ErrorContext(runCtx, "Background run failed", "execution_id", state.ExecutionID, "error", err)
		}
	}()

	return state.ExecutionID, nil
}

func (o *Orchestrator) prepare(ctx context.Context, request RunRequest) (*models.WorkflowState, error) {
	visibility := request.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	if _, err := models.ParseVisibility(string(visibility)); err != nil {
		return nil, err
	}

	now := o.now()
	state := models.NewWorkflowState(o.newID(), request.Episode, visibility, now)

	execution := models.NewExecution(state.ExecutionID, request.Episode, now)
	if err := o.executions.Create(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	o.logger.InfoContext(ctx, "Execution started", "execution_id", state.ExecutionID, "episode", state.Episode())

	started := events.ExecutionStarted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionStartedEvent, state.ExecutionID),
		EpisodeNumber: request.Episode,
		Visibility:    visibility,
	}
	o.emit(ctx, state.ExecutionID, started)

	return state, nil
}

func (o *Orchestrator) execute(ctx context.Context, state *models.WorkflowState) (*models.WorkflowState, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "episode_run",
		attribute.String(otelhelper.ExecutionIDKey, state.ExecutionID),
		attribute.Int(otelhelper.EpisodeKey, state.Episode()),
	)
	defer span.End()

	if err := o.walk(ctx, state); err != nil {
		otelhelper.SetError(span, err)
		o.logger.ErrorContext(ctx, "Execution aborted", "execution_id", state.ExecutionID, "error", err)

		update := state.LedgerUpdate()
		update.Status = models.ExecutionStatusFailed
		update.ErrorMessage = err.Error()

		_, updateErr := o.executions.Update(ctx, state.ExecutionID, update, o.now())
		if updateErr != nil {
			o.logger.ErrorContext(ctx, "Failed to mark execution failed", "execution_id", state.ExecutionID, "error", updateErr)
		}

		o.emitFailed(ctx, state, err.Error())

		return state, err
	}

	execution, err := o.executions.Update(ctx, state.ExecutionID, state.LedgerUpdate(), o.now())
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to update execution", "execution_id", state.ExecutionID, "error", err)
	}

	if state.Failed() {
		otelhelper.SetFailure(span, state.Error)
		o.logger.WarnContext(ctx, "Execution failed",
			"execution_id", state.ExecutionID,
			"step", state.CurrentStep,
			"error", state.Error,
		)
		o.emitFailed(ctx, state, state.Error)

		return state, nil
	}

	completed := events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, state.ExecutionID),
		EpisodeNumber: state.Episode(),
		StoryID:       state.StoryID,
		VideoPath:     state.FinalVideoPath,
	}
	if state.UploadResult != nil {
		completed.VideoURL = state.UploadResult.URL
	}

	if execution != nil && execution.DurationSeconds != nil {
		completed.DurationSeconds = *execution.DurationSeconds
	}

	o.emit(ctx, state.ExecutionID, completed)
	o.logger.InfoContext(ctx, "Execution completed", "execution_id", state.ExecutionID, "episode", state.Episode())

	return state, nil
}

// walk runs the graph and turns a panic into an error.
func (o *Orchestrator) walk(ctx context.Context, state *models.WorkflowState) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, recovered)
		}
	}()

	return o.graph.Run(ctx, state)
}

// step wraps a node with its span, its lifecycle events and the failure bookkeeping.
func (o *Orchestrator) step(name models.StepName, node NodeFunc) NodeFunc {
	return func(ctx context.Context, state *models.WorkflowState) error {
		ctx, span := otelhelper.StartSpan(ctx, o.tracer, string(name),
			attribute.String(otelhelper.ExecutionIDKey, state.ExecutionID),
			attribute.String(otelhelper.StepNameKey, string(name)),
		)
		defer span.End()

		started := o.now()
		o.emit(ctx, state.ExecutionID, events.StepStarted{
			BaseEvent: events.NewBaseEvent(events.StepStartedEvent, state.ExecutionID),
			Step:      name,
		})

		hadError := state.Failed()

		if err := node(ctx, state); err != nil {
			otelhelper.SetError(span, err)

			return err
		}

		if !hadError && state.Failed() {
			otelhelper.SetFailure(span, state.Error)
			o.emit(ctx, state.ExecutionID, events.StepFailed{
				BaseEvent: events.NewBaseEvent(events.StepFailedEvent, state.ExecutionID),
				Step:      name,
				Error:     state.Error,
			})

			return nil
		}

		state.CurrentStep = name
		o.recordStep(ctx, state.ExecutionID, name)

		span.SetAttributes(attribute.Int(otelhelper.EpisodeKey, state.Episode()))
		o.emit(ctx, state.ExecutionID, events.StepCompleted{
			BaseEvent: events.NewBaseEvent(events.StepCompletedEvent, state.ExecutionID),
			Step:      name,
			Duration:  o.now().Sub(started),
		})

		return nil
	}
}

// recordStep writes the completed step to the ledger. A failure is only logged.
func (o *Orchestrator) recordStep(ctx context.Context, executionID string, name models.StepName) {
	if _, err := o.executions.Update(ctx, executionID, models.ExecutionUpdate{CurrentStep: name}, o.now()); err != nil {
		o.logger.WarnContext(ctx, "Failed to record step", "execution_id", executionID, "step", name, "error", err)
	}
}

func (o *Orchestrator) loadHistory(ctx context.Context, state *models.WorkflowState) error {
	history, prior, err := o.readHistory(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to load history, starting empty", "execution_id", state.ExecutionID, "error", err)

		history, prior = []models.StoryHistoryEntry{}, 0
	}

	state.History = history
	state.PriorEpisodes = prior

	return nil
}

func (o *Orchestrator) generateStory(ctx context.Context, state *models.WorkflowState) error {
	result := o.story.Run(ctx, story.Input{
		Episode: state.EpisodeNumber,
		History: state.History,
		Prior:   state.PriorEpisodes,
		Persist: true,
	})
	if !result.IsSuccess() {
		state.Fail(models.StepGenerateStory, result.Err)

		return nil
	}

	episode := result.Data.Episode
	state.EpisodeNumber = &episode
	state.Story = result.Data.Story
	state.StoryID = result.Data.RecordID
	state.History = result.Data.History

	return nil
}

func (o *Orchestrator) generateVideos(ctx context.Context, state *models.WorkflowState) error {
	if o.config.Video.SkipGeneration {
		path := o.config.Video.TestVideoPath
		if path == "" {
			state.Fail(models.StepGenerateVideos, config.ErrMissingTestVideo.Error())

			return nil
		}

		o.logger.InfoContext(ctx, "Skipping video generation", "execution_id", state.ExecutionID, "path", path)
		state.FinalVideoPath = path

		return nil
	}

	result := o.video.Run(ctx, video.Input{
		Prompts:     state.Story.VideoPrompts,
		Duration:    o.config.Video.SegmentDuration,
		AspectRatio: o.config.Video.AspectRatio,
		StoryID:     state.StoryID,
	})
	if !result.IsSuccess() {
		state.Fail(models.StepGenerateVideos, result.Err)

		return nil
	}

	state.FinalVideoPath = result.Data.VideoPath
	state.VideoGenerationID = result.Data.RecordID

	return nil
}

func (o *Orchestrator) upload(ctx context.Context, state *models.WorkflowState) error {
	result := o.publish.Run(ctx, publish.Input{
		VideoPath:         state.FinalVideoPath,
		Title:             state.Story.Title,
		Description:       state.Story.Description,
		Tags:              state.Story.Tags,
		Visibility:        state.Visibility,
		StoryID:           state.StoryID,
		VideoGenerationID: state.VideoGenerationID,
	})
	if !result.IsSuccess() {
		state.Fail(models.StepUpload, result.Err)

		return nil
	}

	state.UploadResult = &models.UploadResult{
		VideoID: result.Data.ExternalID,
		URL:     result.Data.URL,
		Title:   result.Data.Title,
	}
	state.UploadID = result.Data.UploadRecordID

	return nil
}

// saveHistory appends the new episode to the history document and reloads
// the recent history. A failure ends the run without handle_error.
func (o *Orchestrator) saveHistory(ctx context.Context, state *models.WorkflowState) error {
	if o.history != nil && state.Story != nil {
		if err := o.history.Append(ctx, state.Story.HistoryEntry(o.now())); err != nil {
			state.Fail(models.StepSaveHistory, fmt.Sprintf("failed to save history: %v", err))

			return nil
		}
	}

	history, prior, err := o.readHistory(ctx)
	if err != nil {
		state.Fail(models.StepSaveHistory, fmt.Sprintf("failed to save history: %v", err))

		return nil
	}

	state.History = history
	state.PriorEpisodes = prior

	return nil
}

func (o *Orchestrator) handleError(ctx context.Context, state *models.WorkflowState) error {
	o.logger.ErrorContext(ctx, "Workflow error", "execution_id", state.ExecutionID, "error", state.Error)
	state.CurrentStep = models.StepError

	return nil
}

// readHistory returns the latest HistoryLimit episodes for the prompt and the
// number of episodes made so far.
func (o *Orchestrator) readHistory(ctx context.Context) ([]models.StoryHistoryEntry, int, error) {
	limit := o.config.Workflow.HistoryLimit

	if o.history == nil {
		history, err := o.story.History(ctx, limit)
		if err != nil {
			return nil, 0, err
		}

		total, err := o.story.Count(ctx)
		if err != nil {
			return nil, 0, err
		}

		return history, total, nil
	}

	history, err := o.history.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	total := len(history)
	if limit > 0 && total > limit {
		history = history[total-limit:]
	}

	return history, total, nil
}

func (o *Orchestrator) emitFailed(ctx context.Context, state *models.WorkflowState, message string) {
	o.emit(ctx, state.ExecutionID, events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, state.ExecutionID),
		Step:      state.CurrentStep,
		Error:     message,
	})
}

// emit publishes a lifecycle event. Delivery failures never affect the run.
func (o *Orchestrator) emit(ctx context.Context, executionID string, event eventbus.Event) {
	if err := o.eventBus.Publish(ctx, executionID, event); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish event",
			"execution_id", executionID,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}
