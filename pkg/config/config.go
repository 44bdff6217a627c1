// Package config holds the process configuration, built once at start and
// passed to every component constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the full configuration of the episode pipeline.
type Config struct {
	// DatabaseURL selects PostgreSQL when set; otherwise records and history
	// are kept as JSON files under DataDir.
	DatabaseURL string `validate:"omitempty,url"`

	DataDir   string `validate:"required"`
	OutputDir string `validate:"required"`
	LogsDir   string `validate:"required"`
	LogLevel  string `validate:"oneof=debug info warn error"`

	Google    GoogleConfig
	YouTube   YouTubeConfig
	Character Character
	Video     VideoConfig
	Workflow  WorkflowConfig
	EventBus  EventBusConfig
	Schedule  ScheduleConfig
}

// GoogleConfig configures the story and video model clients.
type GoogleConfig struct {
	APIKey     string
	StoryModel string `validate:"required"`
	VideoModel string `validate:"required"`
	BaseURL    string `validate:"omitempty,url"`
}

// YouTubeConfig holds the OAuth client and refresh token of the channel.
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURL  string
}

// Configured reports whether an upload can be authorized.
func (y YouTubeConfig) Configured() bool {
	return y.ClientID != "" && y.ClientSecret != "" && y.RefreshToken != ""
}

// VideoConfig configures the video stage.
type VideoConfig struct {
	SkipGeneration  bool
	TestVideoPath   string
	SegmentDuration int           `validate:"min=1,max=60"`
	AspectRatio     string        `validate:"oneof=9:16 16:9 1:1"`
	PollInterval    time.Duration `validate:"gt=0"`
	MaxWait         time.Duration `validate:"gtfield=PollInterval"`
	FFmpegPath      string        `validate:"required"`

	// DryRun renders placeholders only.
	DryRun bool
}

// WorkflowConfig configures the orchestrator.
type WorkflowConfig struct {
	AbandonAfter time.Duration `validate:"gte=0"`
	HistoryLimit int           `validate:"min=1"`
}

// EventBusConfig selects the lifecycle event transport.
type EventBusConfig struct {
	Provider string   `validate:"oneof=none gochannel kafka"`
	Topic    string
	Brokers  []string `validate:"required_if=Provider kafka"`
}

// ScheduleConfig configures the recurring run.
type ScheduleConfig struct {
	Cron       string
	RedisURL   string `validate:"omitempty,url"`
	LockTTL    time.Duration
	Visibility string `validate:"omitempty,oneof=public private unlisted"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DataDir:   "data",
		OutputDir: filepath.Join("output", "videos"),
		LogsDir:   "logs",
		LogLevel:  "info",
		Google: GoogleConfig{
			StoryModel: "gemini-2.0-flash",
			VideoModel: "veo-3.1-fast-generate-preview",
		},
		YouTube: YouTubeConfig{
			RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
		},
		Character: DefaultCharacter(),
		Video: VideoConfig{
			SegmentDuration: 5,
			AspectRatio:     "9:16",
			PollInterval:    10 * time.Second,
			MaxWait:         10 * time.Minute,
			FFmpegPath:      "ffmpeg",
		},
		Workflow: WorkflowConfig{
			AbandonAfter: 2 * time.Hour,
			HistoryLimit: 100,
		},
		EventBus: EventBusConfig{
			Provider: "none",
			Topic:    "episodic.events",
		},
		Schedule: ScheduleConfig{
			Cron:    "0 9 * * *",
			LockTTL: time.Hour,
		},
	}
}

// ErrMissingTestVideo is returned when video generation is skipped without a replacement file.
var ErrMissingTestVideo = errors.New("skip video generation requires a test video path")

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Video.SkipGeneration && c.Video.TestVideoPath == "" {
		return ErrMissingTestVideo
	}

	return nil
}

// HistoryPath is the story history document used without a database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "story-history.json")
}

// EnsureDirs creates the data, output and logs directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.OutputDir, c.LogsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadEnvFile loads variables from path into the environment without
// overriding existing ones. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}
