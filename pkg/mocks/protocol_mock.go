package mocks

import (
	"context"

	"github.com/dukex/episodic/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockStoryGenerator is a mock implementation of protocol.StoryGenerator interface.
type MockStoryGenerator struct {
	mock.Mock
}

func (m *MockStoryGenerator) LoadHistory(history []models.StoryHistoryEntry) {
	m.Called(history)
}

func (m *MockStoryGenerator) Generate(ctx context.Context, episode int, history []models.StoryHistoryEntry) (*models.Story, error) {
	args := m.Called(ctx, episode, history)

	story, _ := args.Get(0).(*models.Story)

	return story, args.Error(1)
}

// MockVideoRenderer is a mock implementation of protocol.VideoRenderer interface.
type MockVideoRenderer struct {
	mock.Mock
}

func (m *MockVideoRenderer) Render(ctx context.Context, prompt string, durationSeconds int, aspectRatio string) (models.RenderResult, error) {
	args := m.Called(ctx, prompt, durationSeconds, aspectRatio)

	result, _ := args.Get(0).(models.RenderResult)

	return result, args.Error(1)
}

func (m *MockVideoRenderer) Concatenate(ctx context.Context, paths []string, outputName string) (string, error) {
	args := m.Called(ctx, paths, outputName)

	return args.String(0), args.Error(1)
}

// MockPublisher is a mock implementation of protocol.Publisher interface.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Upload(ctx context.Context, request models.UploadRequest) (*models.UploadResult, error) {
	args := m.Called(ctx, request)

	result, _ := args.Get(0).(*models.UploadResult)

	return result, args.Error(1)
}

func (m *MockPublisher) Info(ctx context.Context, externalID string) (map[string]any, error) {
	args := m.Called(ctx, externalID)

	info, _ := args.Get(0).(map[string]any)

	return info, args.Error(1)
}
