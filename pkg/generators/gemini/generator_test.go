package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeModel) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)

	return f.answer, f.err
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestGenerator(model TextModel) *Generator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewGenerator(logger, model, config.DefaultCharacter()).WithClock(func() time.Time { return fixedNow })
}

const validAnswer = "Sure! Here it is:\n```json\n" + `{
  "title": "넝심이의 김치볶음밥",
  "dish": "김치볶음밥",
  "summary": "넝심이가 김치볶음밥을 만든다",
  "story": "배고픈 넝심이",
  "cooking_steps": ["김치 썰기", "볶기", "계란 올리기"],
  "video_prompts": ["raccoon chopping kimchi", "raccoon stir frying", "raccoon serving"],
  "tags": ["김치", "요리"],
  "description": "맛있는 김치볶음밥"
}` + "\n```"

func TestParseStory_Valid(t *testing.T) {
	story, err := ParseStory(validAnswer, 3, config.DefaultCharacter(), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "김치볶음밥", story.Dish)
	assert.Len(t, story.VideoPrompts, 3)
	assert.Equal(t, 3, story.Episode)
	assert.Equal(t, fixedNow.Format(time.RFC3339), story.Date)
}

func TestParseStory_FallbackOnMalformedOutput(t *testing.T) {
	cases := map[string]string{
		"no json":        "I cannot help with that",
		"broken json":    `{"title": "x", "dish": `,
		"missing dish":   `{"title": "x", "video_prompts": ["a"]}`,
		"empty prompts":  `{"title": "x", "dish": "y", "video_prompts": []}`,
		"wrong type":     `{"title": "x", "dish": "y", "video_prompts": "a"}`,
		"empty response": "",
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			story, err := ParseStory(text, 7, config.DefaultCharacter(), fixedNow)
			require.Error(t, err)
			require.NotNil(t, story)

			assert.Equal(t, "넝심이의 요리 - 에피소드 7", story.Title)
			assert.Equal(t, "특별한 요리", story.Dish)
			assert.Equal(t, []string{"준비", "요리", "완성"}, story.CookingSteps)
			assert.Len(t, story.VideoPrompts, 3)
			assert.Equal(t, 7, story.Episode)
		})
	}
}

func TestFallbackStory_EmptyText(t *testing.T) {
	story := FallbackStory("", 1, config.DefaultCharacter(), fixedNow)

	assert.Equal(t, "넝심이가 요리를 만드는 스토리", story.Story)
	assert.Equal(t, "넝심이의 요리 영상", story.Description)
}

func TestFallbackStory_TruncatesByRune(t *testing.T) {
	text := strings.Repeat("가", 600)

	story := FallbackStory(text, 1, config.DefaultCharacter(), fixedNow)

	assert.Equal(t, 500, len([]rune(story.Story)))
	assert.Equal(t, story.Story, story.Description)
}

func TestFallbackStory_DeterministicExceptDate(t *testing.T) {
	character := config.DefaultCharacter()

	first := FallbackStory("garbage", 2, character, fixedNow)
	second := FallbackStory("garbage", 2, character, fixedNow.Add(time.Hour))

	assert.NotEqual(t, first.Date, second.Date)

	second.Date = first.Date
	assert.Equal(t, first, second)
}

func TestBuildPrompt_History(t *testing.T) {
	character := config.DefaultCharacter()

	prompt := BuildPrompt(character, 1, nil)
	assert.NotContains(t, prompt, "이전 콘텐츠 기록")
	assert.Contains(t, prompt, "에피소드 1를")

	history := make([]models.StoryHistoryEntry, 0, 12)
	for i := 1; i <= 12; i++ {
		history = append(history, models.StoryHistoryEntry{Episode: i, Dish: "dish" + string(rune('a'+i)), Title: "t", Summary: "s"})
	}

	prompt = BuildPrompt(character, 13, history)
	assert.Contains(t, prompt, "dishb, dishc")
	assert.NotContains(t, prompt, "- 에피소드 2:")
	assert.Contains(t, prompt, "- 에피소드 3:")
	assert.Contains(t, prompt, "- 에피소드 12:")
}

func TestGenerator_Generate(t *testing.T) {
	model := &fakeModel{answer: validAnswer}
	generator := newTestGenerator(model)

	history := []models.StoryHistoryEntry{{Episode: 1, Dish: "라면", Title: "첫 요리", Summary: "라면"}}

	story, err := generator.Generate(context.Background(), 2, history)
	require.NoError(t, err)
	assert.Equal(t, "김치볶음밥", story.Dish)
	assert.Contains(t, model.prompts[0], "라면")

	recorded := generator.History()
	require.Len(t, recorded, 2)
	assert.Equal(t, 2, recorded[1].Episode)
	assert.Len(t, history, 1)
}

type syncModel struct {
	mu      sync.Mutex
	prompts []string
}

func (s *syncModel) GenerateText(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)

	return validAnswer, nil
}

func TestGenerator_Generate_ConcurrentHistoriesStaySeparate(t *testing.T) {
	model := &syncModel{}
	generator := newTestGenerator(model)

	const runs = 20

	var wg sync.WaitGroup

	for i := 1; i <= runs; i++ {
		wg.Add(1)

		go func(episode int) {
			defer wg.Done()

			history := []models.StoryHistoryEntry{{Episode: episode, Dish: fmt.Sprintf("dish-%02d", episode), Title: "t", Summary: "s"}}

			_, err := generator.Generate(context.Background(), episode+1, history)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	require.Len(t, model.prompts, runs)

	for _, prompt := range model.prompts {
		var episode int

		for i := 1; i <= runs; i++ {
			if strings.Contains(prompt, fmt.Sprintf("에피소드 %d를", i+1)) {
				episode = i
			}
		}

		require.NotZero(t, episode)
		assert.Contains(t, prompt, fmt.Sprintf("dish-%02d", episode))

		for other := 1; other <= runs; other++ {
			if other != episode {
				assert.NotContains(t, prompt, fmt.Sprintf("dish-%02d", other))
			}
		}
	}
}

func TestGenerator_Generate_MalformedOutputRecovers(t *testing.T) {
	generator := newTestGenerator(&fakeModel{answer: "not json"})

	story, err := generator.Generate(context.Background(), 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "특별한 요리", story.Dish)
}

func TestGenerator_Generate_ModelError(t *testing.T) {
	generator := newTestGenerator(&fakeModel{err: errors.New("quota exceeded")})

	story, err := generator.Generate(context.Background(), 1, nil)
	require.Error(t, err)
	assert.Nil(t, story)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, generator.History())
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.GoogleConfig{StoryModel: "gemini-2.0-flash"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
