package ffmpeg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	name   string
	args   []string
	list   string
	stderr string
	err    error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.name = name
	r.args = args

	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			data, err := os.ReadFile(args[i+1])
			if err == nil {
				r.list = string(data)
			}
		}
	}

	return r.stderr, r.err
}

func newTestConcatenator(t *testing.T, runner Runner) (*Concatenator, string) {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewConcatenator(logger, "", dir).WithRunner(runner), dir
}

func TestConcatenate_RunsDemuxerInOrder(t *testing.T) {
	runner := &recordingRunner{}
	concatenator, dir := newTestConcatenator(t, runner)

	output, err := concatenator.Concatenate(context.Background(), []string{"/clips/b.mp4", "/clips/a.mp4"}, "final.mp4")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "final.mp4"), output)
	assert.Equal(t, "ffmpeg", runner.name)
	assert.Equal(t, []string{"-f", "concat", "-safe", "0"}, runner.args[1:5])
	assert.Equal(t, "file '/clips/b.mp4'\nfile '/clips/a.mp4'\n", runner.list)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "concat list must be removed")
}

func TestConcatenate_FailureSurfacesStderr(t *testing.T) {
	runner := &recordingRunner{stderr: "Invalid data found\n", err: errors.New("exit status 1")}
	concatenator, dir := newTestConcatenator(t, runner)

	_, err := concatenator.Concatenate(context.Background(), []string{"/clips/a.mp4", "/clips/b.mp4"}, "final.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcatenate_NoInputs(t *testing.T) {
	concatenator, _ := newTestConcatenator(t, &recordingRunner{})

	_, err := concatenator.Concatenate(context.Background(), nil, "final.mp4")
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestConcatList_EscapesQuotes(t *testing.T) {
	assert.Equal(t, "file '/clips/it'\\''s.mp4'\n", ConcatList([]string{"/clips/it's.mp4"}))
}
