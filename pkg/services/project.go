package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/dukex/episodic/pkg/persistence"
	"github.com/dukex/episodic/pkg/protocol"
	"github.com/dukex/episodic/pkg/workflow"
)

// Command names accepted by Project.Run.
const (
	CommandStatus   = "status"
	CommandGenerate = "generate"
	CommandHistory  = "history"
	CommandMigrate  = "migrate"
	CommandCleanup  = "cleanup"
	CommandInit     = "init"
)

// Migration actions.
const (
	ActionUpgrade   = "upgrade"
	ActionDowngrade = "downgrade"
	ActionCurrent   = "current"
	ActionHistory   = "history"
)

const cleanupListLimit = 10

// Result is the structured outcome of a project command.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func succeeded(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

func failed(message string, data any) Result {
	return Result{Success: false, Message: message, Data: data}
}

// Command is one dispatched project command with its arguments.
type Command struct {
	Name     string
	Episode  *int
	Private  bool
	Limit    int
	Action   string
	Revision string
	Days     int
	DryRun   bool
}

// Runner executes one episode run.
type Runner interface {
	Run(ctx context.Context, request workflow.RunRequest) (*models.WorkflowState, error)
}

// ProjectStatus is the data of the status command.
type ProjectStatus struct {
	TotalEpisodes       int             `json:"total_episodes"`
	TotalVideos         int             `json:"total_videos"`
	TotalUploads        int             `json:"total_uploads"`
	LastExecution       *time.Time      `json:"last_execution"`
	LastExecutionStatus string          `json:"last_execution_status,omitempty"`
	DatabaseConnected   bool            `json:"database_connected"`
	APIKeysConfigured   map[string]bool `json:"api_keys_configured"`
	AbandonedExecutions []string        `json:"abandoned_executions"`
}

// HistoryItem is one row of the history command.
type HistoryItem struct {
	Episode   int        `json:"episode"`
	Title     string     `json:"title"`
	Dish      string     `json:"dish"`
	Date      string     `json:"date"`
	CreatedAt *time.Time `json:"created_at"`
}

// CleanupReport is the data of the cleanup command.
type CleanupReport struct {
	FilesCount  int      `json:"files_count"`
	TotalSizeMB float64  `json:"total_size_mb"`
	DryRun      bool     `json:"dry_run"`
	Files       []string `json:"files"`
}

// ProjectDependencies of a Project. Only Config and Persistence are required.
type ProjectDependencies struct {
	Config      *config.Config
	Persistence persistence.Persistence
	History     persistence.HistoryStore
	Runner      Runner
	Publisher   protocol.Publisher
}

// Project implements the project management commands.
type Project struct {
	config      *config.Config
	persistence persistence.Persistence
	history     persistence.HistoryStore
	runner      Runner
	publisher   protocol.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewProject(logger *slog.Logger, deps ProjectDependencies) *Project {
	return &Project{
		config:      deps.Config,
		persistence: deps.Persistence,
		history:     deps.History,
		runner:      deps.Runner,
		publisher:   deps.Publisher,
		logger:      logger.With("module", "project"),
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (p *Project) WithClock(now func() time.Time) *Project {
	p.now = now

	return p
}

// Run dispatches command. Errors never escape; they become failed results.
func (p *Project) Run(ctx context.Context, command Command) Result {
	switch command.Name {
	case CommandStatus:
		return p.Status(ctx)
	case CommandGenerate:
		return p.Generate(ctx, command.Episode, command.Private)
	case CommandHistory:
		return p.History(ctx, command.Limit)
	case CommandMigrate:
		return p.Migrate(ctx, command.Action, command.Revision)
	case CommandCleanup:
		return p.Cleanup(ctx, command.Days, command.DryRun)
	case CommandInit:
		return p.Init(ctx)
	default:
		return failed(fmt.Sprintf("Unknown command: %s. Available: %s", command.Name,
			strings.Join([]string{CommandStatus, CommandGenerate, CommandHistory, CommandMigrate, CommandCleanup, CommandInit}, ", ")),
			map[string]string{"error": ErrInvalidCommand.Error()})
	}
}

// Status reports record counts, the last execution, connectivity and
// configured credentials.
func (p *Project) Status(ctx context.Context) Result {
	status := ProjectStatus{
		APIKeysConfigured: map[string]bool{
			"google":  p.config.Google.APIKey != "",
			"youtube": p.config.YouTube.Configured(),
		},
		AbandonedExecutions: []string{},
	}

	if err := p.persistence.HealthCheck(ctx); err != nil {
		p.logger.WarnContext(ctx, "Store is unhealthy", "error", err)

		return succeeded("Project status retrieved", status)
	}

	status.DatabaseConnected = p.persistence.Migrator() != nil

	if err := p.fillCounts(ctx, &status); err != nil {
		p.logger.WarnContext(ctx, "Failed to read project counts", "error", err)

		status.DatabaseConnected = false

		return succeeded("Project status retrieved", status)
	}

	executions := p.persistence.ExecutionRepository()

	last, err := executions.List(ctx, 1)
	if err == nil && len(last) > 0 {
		startedAt := last[0].StartedAt
		status.LastExecution = &startedAt
		status.LastExecutionStatus = string(last[0].Status)
	}

	running, err := executions.ListByStatus(ctx, models.ExecutionStatusRunning)
	if err == nil {
		now := p.now()

		for _, execution := range running {
			if execution.IsAbandoned(now, p.config.Workflow.AbandonAfter) {
				status.AbandonedExecutions = append(status.AbandonedExecutions, execution.ID)
			}
		}
	}

	return succeeded("Project status retrieved", status)
}

func (p *Project) fillCounts(ctx context.Context, status *ProjectStatus) error {
	var err error

	if status.TotalEpisodes, err = p.persistence.StoryRepository().Count(ctx); err != nil {
		return err
	}

	if status.TotalVideos, err = p.persistence.VideoGenerationRepository().Count(ctx); err != nil {
		return err
	}

	status.TotalUploads, err = p.persistence.UploadRepository().Count(ctx)

	return err
}

// Generate runs one episode. private uploads the video as private.
func (p *Project) Generate(ctx context.Context, episode *int, private bool) Result {
	if p.runner == nil {
		return failed("Workflow execution failed", map[string]string{"error": ErrNoRunner.Error()})
	}

	visibility := models.VisibilityPublic
	if private {
		visibility = models.VisibilityPrivate
	}

	p.logger.InfoContext(ctx, "Starting episode generation", "visibility", visibility)

	started := p.now()

	state, err := p.runner.Run(ctx, workflow.RunRequest{Episode: episode, Visibility: visibility})
	if err != nil {
		return failed(fmt.Sprintf("Workflow execution failed: %v", err), map[string]string{"error": err.Error()})
	}

	if state.Failed() {
		return failed(fmt.Sprintf("Episode generation failed: %s", state.Error), map[string]any{
			"error":        state.Error,
			"execution_id": state.ExecutionID,
		})
	}

	data := map[string]any{
		"episode":          state.Episode(),
		"execution_id":     state.ExecutionID,
		"video_url":        nil,
		"duration_seconds": p.now().Sub(started).Seconds(),
	}
	if state.UploadResult != nil {
		data["video_url"] = state.UploadResult.URL
	}

	return succeeded(fmt.Sprintf("Episode %d generated successfully!", state.Episode()), data)
}

// History lists the latest limit episodes, most recent first.
func (p *Project) History(ctx context.Context, limit int) Result {
	if limit <= 0 {
		return failed(fmt.Sprintf("Failed to view history: %v", ErrInvalidLimit), nil)
	}

	items, err := p.historyItems(ctx, limit)
	if err != nil {
		return failed(fmt.Sprintf("Failed to view history: %v", err), nil)
	}

	return succeeded(fmt.Sprintf("Retrieved %d episodes", len(items)), map[string]any{"episodes": items})
}

func (p *Project) historyItems(ctx context.Context, limit int) ([]HistoryItem, error) {
	items := []HistoryItem{}

	if p.history != nil {
		entries, err := p.history.Load(ctx)
		if err != nil {
			return nil, err
		}

		for _, entry := range slices.Backward(entries) {
			if len(items) == limit {
				break
			}

			items = append(items, HistoryItem{Episode: entry.Episode, Title: entry.Title, Dish: entry.Dish, Date: entry.Date})
		}

		return items, nil
	}

	records, err := p.persistence.StoryRepository().Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	for _, record := range slices.Backward(records) {
		createdAt := record.CreatedAt
		items = append(items, HistoryItem{
			Episode:   record.Episode,
			Title:     record.Title,
			Dish:      record.Dish,
			Date:      record.Date.Format(time.RFC3339),
			CreatedAt: &createdAt,
		})
	}

	return items, nil
}

// Migrate upgrades, downgrades or reports the schema version. revision is
// "head" for upgrade, and "base", "-1" or a version number for downgrade.
func (p *Project) Migrate(ctx context.Context, action, revision string) Result {
	migrator := p.persistence.Migrator()
	if migrator == nil {
		return failed(fmt.Sprintf("Migration failed: %v", ErrNoDatabase), nil)
	}

	output, err := p.migrate(ctx, migrator, action, revision)
	if err != nil {
		p.logger.ErrorContext(ctx, "Migration failed", "action", action, "revision", revision, "error", err)

		return failed(fmt.Sprintf("Migration failed: %v", err), nil)
	}

	return succeeded("Migration completed", map[string]any{"output": output})
}

func (p *Project) migrate(ctx context.Context, migrator persistence.Migrator, action, revision string) (any, error) {
	switch action {
	case ActionUpgrade, "":
		if revision != "" && revision != "head" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRevision, revision)
		}

		if err := migrator.Up(ctx); err != nil {
			return nil, err
		}

		return migrator.Current(ctx)
	case ActionDowngrade:
		current, err := migrator.Current(ctx)
		if err != nil {
			return nil, err
		}

		target, err := downgradeTarget(revision, current)
		if err != nil {
			return nil, err
		}

		if err := migrator.Down(ctx, target); err != nil {
			return nil, err
		}

		return migrator.Current(ctx)
	case ActionCurrent:
		return migrator.Current(ctx)
	case ActionHistory:
		return migrator.History(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMigrationAction, action)
	}
}

func downgradeTarget(revision string, current int) (int, error) {
	switch revision {
	case "base":
		return 0, nil
	case "-1", "", "head":
		return max(current-1, 0), nil
	}

	target, err := strconv.Atoi(revision)
	if err != nil || target < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRevision, revision)
	}

	return target, nil
}

// Cleanup removes rendered videos and logs older than days. Nothing is
// deleted when dryRun is set.
func (p *Project) Cleanup(ctx context.Context, days int, dryRun bool) Result {
	if days < 0 {
		return failed(fmt.Sprintf("Cleanup failed: %v", ErrInvalidDays), nil)
	}

	cutoff := p.now().Add(-time.Duration(days) * 24 * time.Hour)
	report := CleanupReport{DryRun: dryRun, Files: []string{}}

	var (
		files     []string
		totalSize int64
	)

	for _, target := range []struct{ dir, pattern string }{
		{p.config.OutputDir, "*.mp4"},
		{p.config.LogsDir, "*.log"},
	} {
		matched, size, err := collectOld(target.dir, target.pattern, cutoff)
		if err != nil {
			return failed(fmt.Sprintf("Cleanup failed: %v", err), nil)
		}

		files = append(files, matched...)
		totalSize += size
	}

	if !dryRun {
		for _, path := range files {
			if err := os.Remove(path); err != nil {
				return failed(fmt.Sprintf("Cleanup failed: %v", err), nil)
			}
		}
	}

	report.FilesCount = len(files)
	report.TotalSizeMB = math.Round(float64(totalSize)/(1024*1024)*100) / 100
	report.Files = append(report.Files, files[:min(len(files), cleanupListLimit)]...)

	p.logger.InfoContext(ctx, "Cleanup finished", "files", report.FilesCount, "dry_run", dryRun)

	message := "Cleanup completed"
	if dryRun {
		message = "Dry run completed"
	}

	return succeeded(message, report)
}

func collectOld(dir, pattern string, cutoff time.Time) ([]string, int64, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, 0, err
	}

	var (
		files []string
		size  int64
	)

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, 0, err
		}

		if info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}

		files = append(files, path)
		size += info.Size()
	}

	return files, size, nil
}

// Init creates the working directories and applies the schema.
func (p *Project) Init(ctx context.Context) Result {
	if err := p.config.EnsureDirs(); err != nil {
		return failed(fmt.Sprintf("Initialization failed: %v", err), nil)
	}

	if migrator := p.persistence.Migrator(); migrator != nil {
		if err := migrator.Up(ctx); err != nil {
			return failed(fmt.Sprintf("Initialization failed: %v", err), nil)
		}
	}

	return succeeded("Database initialized", nil)
}

// UploadTestRequest is a direct upload that bypasses the workflow.
type UploadTestRequest struct {
	VideoPath   string
	Title       string
	Description string
	Private     bool
}

// UploadTest uploads a local file as a Shorts video.
func (p *Project) UploadTest(ctx context.Context, request UploadTestRequest) Result {
	if p.publisher == nil {
		return failed(fmt.Sprintf("Upload failed: %v", ErrNoPublisher), nil)
	}

	if _, err := os.Stat(request.VideoPath); err != nil {
		return failed(fmt.Sprintf("Upload failed: %v: %s", ErrVideoFileNotFound, request.VideoPath), nil)
	}

	visibility := models.VisibilityPublic
	if request.Private {
		visibility = models.VisibilityPrivate
	}

	result, err := p.publisher.Upload(ctx, models.UploadRequest{
		VideoPath:   request.VideoPath,
		Title:       request.Title,
		Description: request.Description,
		Tags:        []string{"테스트", "AI", p.config.Character.MainName},
		Visibility:  visibility,
	})
	if err != nil {
		return failed(fmt.Sprintf("Upload failed: %v", err), nil)
	}

	return succeeded("Upload completed", map[string]string{
		"video_id": result.VideoID,
		"url":      result.URL,
	})
}
