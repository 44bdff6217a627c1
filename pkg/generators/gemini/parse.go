package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoStoryDocument is returned when the model answer holds no JSON object.
var ErrNoStoryDocument = errors.New("no story document in model output")

var documentPattern = regexp.MustCompile(`\{[\s\S]*\}`)

var storySchema = map[string]any{
	"type":     "object",
	"required": []any{"title", "dish", "video_prompts"},
	"properties": map[string]any{
		"title":         map[string]any{"type": "string", "minLength": 1},
		"dish":          map[string]any{"type": "string", "minLength": 1},
		"summary":       map[string]any{"type": "string"},
		"story":         map[string]any{"type": "string"},
		"description":   map[string]any{"type": "string"},
		"cooking_steps": stringList(0),
		"video_prompts": stringList(1),
		"tags":          stringList(0),
	},
}

func stringList(minItems int) map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": minItems,
		"items":    map[string]any{"type": "string"},
	}
}

const fallbackExcerpt = 500

// ParseStory extracts the story document from a model answer. When the
// answer is not a valid story it returns FallbackStory together with the
// reason, so the caller always gets a usable story.
func ParseStory(text string, episode int, character config.Character, now time.Time) (*models.Story, error) {
	story, err := decodeStory(text)
	if err != nil {
		return FallbackStory(text, episode, character, now), err
	}

	story.Episode = episode
	story.Date = now.Format(time.RFC3339)

	return story, nil
}

func decodeStory(text string) (*models.Story, error) {
	document := documentPattern.FindString(text)
	if document == "" {
		return nil, ErrNoStoryDocument
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(document), &data); err != nil {
		return nil, fmt.Errorf("invalid story json: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(storySchema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, err
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return nil, fmt.Errorf("story validation errors: %s", strings.Join(messages, "; "))
	}

	var story models.Story
	if err := json.Unmarshal([]byte(document), &story); err != nil {
		return nil, fmt.Errorf("invalid story json: %w", err)
	}

	return &story, nil
}

// FallbackStory is the placeholder used for malformed model output. Apart
// from Date it depends only on text, episode and character.
func FallbackStory(text string, episode int, character config.Character, now time.Time) *models.Story {
	name := character.MainName
	excerpt := truncateRunes(text, fallbackExcerpt)

	story := excerpt
	if story == "" {
		story = name + "가 요리를 만드는 스토리"
	}

	description := excerpt
	if description == "" {
		description = name + "의 요리 영상"
	}

	return &models.Story{
		Title:        fmt.Sprintf("%s의 요리 - 에피소드 %d", name, episode),
		Dish:         "특별한 요리",
		Summary:      name + "가 요리를 만드는 귀여운 영상",
		Story:        story,
		CookingSteps: []string{"준비", "요리", "완성"},
		VideoPrompts: []string{
			name + "가 요리를 준비하는 모습",
			name + "가 요리하는 모습",
			name + "가 완성된 요리를 보여주는 모습",
		},
		Tags:        []string{"요리", "라쿤", "쇼츠"},
		Description: description,
		Episode:     episode,
		Date:        now.Format(time.RFC3339),
	}
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
