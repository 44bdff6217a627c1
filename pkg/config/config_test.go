package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "넝심이", cfg.Character.MainName)
	assert.Equal(t, 5, cfg.Video.SegmentDuration)
	assert.Equal(t, "9:16", cfg.Video.AspectRatio)
	assert.Equal(t, filepath.Join("data", "story-history.json"), cfg.HistoryPath())
}

func TestValidate_SkipWithoutTestVideo(t *testing.T) {
	cfg := Default()
	cfg.Video.SkipGeneration = true

	assert.ErrorIs(t, cfg.Validate(), ErrMissingTestVideo)

	cfg.Video.TestVideoPath = "/videos/test.mp4"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_FieldRules(t *testing.T) {
	cfg := Default()
	cfg.Video.MaxWait = time.Second
	cfg.Video.PollInterval = 10 * time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.EventBus.Provider = "rabbitmq"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Character.MainName = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadCharacter_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "character.yaml")
	require.NoError(t, os.WriteFile(path, []byte("main_name: 보리\nstyle: watercolor\n"), 0600))

	character, err := LoadCharacter(path)
	require.NoError(t, err)
	assert.Equal(t, "보리", character.MainName)
	assert.Equal(t, "watercolor", character.Style)
	assert.Equal(t, "친구", character.SupportingName)

	_, err = LoadCharacter(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCharacter_ImagePath(t *testing.T) {
	dir := t.TempDir()
	character := DefaultCharacter()
	character.ImageDir = dir

	assert.Empty(t, character.ImagePath())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "raccoon.jpg"), []byte("img"), 0600))
	assert.Equal(t, filepath.Join(dir, "raccoon.jpg"), character.ImagePath())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EPISODIC_TEST_VALUE=from-file\n"), 0600))

	t.Setenv("EPISODIC_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("EPISODIC_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("EPISODIC_TEST_VALUE"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestBuildDatabaseURL(t *testing.T) {
	assert.Equal(t,
		"postgres://postgres:secret@db:5432/episodes?sslmode=disable",
		BuildDatabaseURL("postgres", "secret", "db", 5432, "episodes"))
	assert.Equal(t,
		"postgres://postgres@localhost:5433/episodes?sslmode=disable",
		BuildDatabaseURL("postgres", "", "localhost", 5433, "episodes"))
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.OutputDir = filepath.Join(root, "output", "videos")
	cfg.LogsDir = filepath.Join(root, "logs")

	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.OutputDir)
}
