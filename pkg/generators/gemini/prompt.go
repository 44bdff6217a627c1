package gemini

import (
	"fmt"
	"strings"

	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/models"
)

const recentEpisodes = 10

// BuildPrompt renders the story request for episode. Every previous dish is
// listed so the model avoids repeats; the last episodes are detailed.
func BuildPrompt(character config.Character, episode int, history []models.StoryHistoryEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "당신은 귀여운 캐릭터 \"%s\"의 요리 쇼츠 영상을 위한 스토리를 작성하는 작가입니다.\n\n", character.MainName)
	b.WriteString("캐릭터 정보:\n")
	fmt.Fprintf(&b, "- 주인공: %s - %s\n", character.MainName, character.MainDescription)
	fmt.Fprintf(&b, "- 조연: %s - %s\n\n", character.SupportingName, character.SupportingDescription)

	b.WriteString("요구사항:\n")
	b.WriteString("1. 요리 영상이 메인 콘텐츠입니다\n")
	b.WriteString("2. 간단하고 귀여운 스토리가 요리 과정과 자연스럽게 연결됩니다\n")
	b.WriteString("3. 캐릭터들은 일관성 있게 유지됩니다\n")
	b.WriteString("4. 쇼츠 영상(60초 이내)에 적합한 분량입니다\n")
	b.WriteString("5. 시청자들이 즐겁게 볼 수 있는 가벼운 톤입니다\n")

	if len(history) > 0 {
		b.WriteString(historyContext(history))
	}

	fmt.Fprintf(&b, "\n에피소드 %d를 위한 스토리를 생성해주세요. 다음 JSON 형식으로 응답해주세요:\n\n", episode)
	b.WriteString(`{
  "title": "영상 제목",
  "dish": "만들 요리 이름",
  "summary": "스토리 요약 (1-2문장)",
  "story": "상세 스토리 설명",
  "cooking_steps": ["요리 단계 1", "요리 단계 2", "요리 단계 3"],
  "video_prompts": ["영상 프롬프트 1", "영상 프롬프트 2", "영상 프롬프트 3"],
  "tags": ["태그1", "태그2", "태그3"],
  "description": "YouTube 설명란용 텍스트"
}`)

	return b.String()
}

func historyContext(history []models.StoryHistoryEntry) string {
	var b strings.Builder

	dishes := make([]string, 0, len(history))
	for _, entry := range history {
		dishes = append(dishes, entry.Dish)
	}

	recent := history
	if len(recent) > recentEpisodes {
		recent = recent[len(recent)-recentEpisodes:]
	}

	b.WriteString("\n=== 이전 콘텐츠 기록 ===\n\n")
	b.WriteString("지금까지 만든 요리 목록 (중복 금지):\n")
	b.WriteString(strings.Join(dishes, ", "))
	b.WriteString("\n\n최근 에피소드 상세:\n")

	for _, entry := range recent {
		fmt.Fprintf(&b, "- 에피소드 %d: [%s] %s - %s\n", entry.Episode, entry.Dish, entry.Title, entry.Summary)
	}

	b.WriteString("\n중요: 위 요리들과 중복되지 않는 새로운 요리를 선택하세요!\n")

	return b.String()
}
