package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v3"
)

// Flags returns the command line flags shared by every episodic binary.
// Each flag also reads its environment variable.
func Flags() []cli.Flag {
	defaults := Default()

	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "PostgreSQL connection URL (JSON files under --data-dir when empty)",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "db-host",
			Usage:   "PostgreSQL host, used to build the URL when --database-url is empty",
			Sources: cli.EnvVars("DB_HOST"),
		},
		&cli.IntFlag{
			Name:    "db-port",
			Value:   5432,
			Sources: cli.EnvVars("DB_PORT"),
		},
		&cli.StringFlag{
			Name:    "db-user",
			Value:   "postgres",
			Sources: cli.EnvVars("DB_USER"),
		},
		&cli.StringFlag{
			Name:    "db-password",
			Sources: cli.EnvVars("DB_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "db-name",
			Value:   "ai_video_workflow",
			Sources: cli.EnvVars("DB_NAME"),
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Value:   defaults.DataDir,
			Sources: cli.EnvVars("DATA_DIR"),
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Value:   defaults.OutputDir,
			Sources: cli.EnvVars("OUTPUT_DIR"),
		},
		&cli.StringFlag{
			Name:    "logs-dir",
			Value:   defaults.LogsDir,
			Sources: cli.EnvVars("LOGS_DIR"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   defaults.LogLevel,
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "google-api-key",
			Usage:   "API key for the story and video models",
			Sources: cli.EnvVars("GOOGLE_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "story-model",
			Value:   defaults.Google.StoryModel,
			Sources: cli.EnvVars("STORY_MODEL"),
		},
		&cli.StringFlag{
			Name:    "video-model",
			Value:   defaults.Google.VideoModel,
			Sources: cli.EnvVars("VIDEO_MODEL"),
		},
		&cli.StringFlag{
			Name:    "youtube-client-id",
			Sources: cli.EnvVars("YOUTUBE_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:    "youtube-client-secret",
			Sources: cli.EnvVars("YOUTUBE_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:    "youtube-refresh-token",
			Sources: cli.EnvVars("YOUTUBE_REFRESH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "youtube-redirect-url",
			Value:   defaults.YouTube.RedirectURL,
			Sources: cli.EnvVars("YOUTUBE_REDIRECT_URL"),
		},
		&cli.StringFlag{
			Name:    "character-file",
			Usage:   "YAML file describing the recurring characters",
			Sources: cli.EnvVars("CHARACTER_FILE"),
		},
		&cli.BoolFlag{
			Name:    "skip-video-generation",
			Usage:   "Use --test-video-path instead of rendering",
			Sources: cli.EnvVars("SKIP_VIDEO_GENERATION"),
		},
		&cli.StringFlag{
			Name:    "test-video-path",
			Sources: cli.EnvVars("TEST_VIDEO_PATH"),
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Usage:   "Render placeholder segments without calling the video model",
			Sources: cli.EnvVars("DRY_RUN"),
		},
		&cli.IntFlag{
			Name:    "segment-duration",
			Value:   defaults.Video.SegmentDuration,
			Sources: cli.EnvVars("SEGMENT_DURATION"),
		},
		&cli.DurationFlag{
			Name:    "render-poll-interval",
			Value:   defaults.Video.PollInterval,
			Sources: cli.EnvVars("RENDER_POLL_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:    "render-max-wait",
			Value:   defaults.Video.MaxWait,
			Sources: cli.EnvVars("RENDER_MAX_WAIT"),
		},
		&cli.StringFlag{
			Name:    "ffmpeg-path",
			Value:   defaults.Video.FFmpegPath,
			Sources: cli.EnvVars("FFMPEG_PATH"),
		},
		&cli.DurationFlag{
			Name:    "abandon-after",
			Usage:   "Running executions older than this are reported as abandoned",
			Value:   defaults.Workflow.AbandonAfter,
			Sources: cli.EnvVars("ABANDON_AFTER"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (none, gochannel, kafka)",
			Value:   defaults.EventBus.Provider,
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "event-topic",
			Value:   defaults.EventBus.Topic,
			Sources: cli.EnvVars("EVENT_TOPIC"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka broker addresses for --event-bus kafka",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL used to lock scheduled runs across replicas",
			Sources: cli.EnvVars("REDIS_URL"),
		},
	}
}

// FromCommand builds and validates the configuration from parsed flags.
func FromCommand(command *cli.Command) (*Config, error) {
	cfg := Default()

	cfg.DatabaseURL = command.String("database-url")
	if cfg.DatabaseURL == "" && command.String("db-host") != "" {
		cfg.DatabaseURL = BuildDatabaseURL(
			command.String("db-user"),
			command.String("db-password"),
			command.String("db-host"),
			command.Int("db-port"),
			command.String("db-name"),
		)
	}

	cfg.DataDir = command.String("data-dir")
	cfg.OutputDir = command.String("output-dir")
	cfg.LogsDir = command.String("logs-dir")
	cfg.LogLevel = command.String("log-level")

	cfg.Google.APIKey = command.String("google-api-key")
	cfg.Google.StoryModel = command.String("story-model")
	cfg.Google.VideoModel = command.String("video-model")

	cfg.YouTube.ClientID = command.String("youtube-client-id")
	cfg.YouTube.ClientSecret = command.String("youtube-client-secret")
	cfg.YouTube.RefreshToken = command.String("youtube-refresh-token")
	cfg.YouTube.RedirectURL = command.String("youtube-redirect-url")

	if path := command.String("character-file"); path != "" {
		character, err := LoadCharacter(path)
		if err != nil {
			return nil, err
		}

		cfg.Character = character
	}

	cfg.Video.SkipGeneration = command.Bool("skip-video-generation")
	cfg.Video.TestVideoPath = command.String("test-video-path")
	cfg.Video.DryRun = command.Bool("dry-run")
	cfg.Video.SegmentDuration = command.Int("segment-duration")
	cfg.Video.PollInterval = command.Duration("render-poll-interval")
	cfg.Video.MaxWait = command.Duration("render-max-wait")
	cfg.Video.FFmpegPath = command.String("ffmpeg-path")

	cfg.Workflow.AbandonAfter = command.Duration("abandon-after")

	cfg.EventBus.Provider = command.String("event-bus")
	cfg.EventBus.Topic = command.String("event-topic")
	cfg.EventBus.Brokers = command.StringSlice("kafka-brokers")
	cfg.Schedule.RedisURL = command.String("redis-url")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BuildDatabaseURL assembles a PostgreSQL URL from its parts.
func BuildDatabaseURL(user, password, host string, port int, name string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + strconv.Itoa(port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}

	if password == "" {
		u.User = url.User(user)
	}

	return u.String()
}

// String renders the configuration without secrets.
func (c *Config) String() string {
	mode := "file"
	if c.DatabaseURL != "" {
		mode = "postgresql"
	}

	return fmt.Sprintf("persistence=%s data=%s output=%s skip_video=%t dry_run=%t event_bus=%s",
		mode, c.DataDir, c.OutputDir, c.Video.SkipGeneration, c.Video.DryRun, c.EventBus.Provider)
}
