package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Character describes the recurring cast used to build prompts.
type Character struct {
	MainName              string `yaml:"main_name" validate:"required"`
	MainDescription       string `yaml:"main_description"`
	SupportingName        string `yaml:"supporting_name"`
	SupportingDescription string `yaml:"supporting_description"`
	Style                 string `yaml:"style"`
	NegativePrompt        string `yaml:"negative_prompt"`

	// ImageDir holds an optional reference image of the main character.
	ImageDir string `yaml:"image_dir"`
}

// DefaultCharacter is the raccoon cook.
func DefaultCharacter() Character {
	return Character{
		MainName:              "넝심이",
		MainDescription:       "살짝 너구리 같은 귀여운 라쿤 캐릭터, 요리를 좋아함",
		SupportingName:        "친구",
		SupportingDescription: "넝심이의 친구",
		Style:                 "cute, animated, raccoon cooking",
		NegativePrompt:        "realistic, human, scary",
		ImageDir:              "character",
	}
}

// LoadCharacter reads a YAML character profile. Fields missing from the file
// keep their default values.
func LoadCharacter(path string) (Character, error) {
	character := DefaultCharacter()

	data, err := os.ReadFile(path)
	if err != nil {
		return character, fmt.Errorf("failed to read character file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &character); err != nil {
		return character, fmt.Errorf("failed to parse character file %s: %w", path, err)
	}

	return character, nil
}

// ImagePath returns the first reference image found in ImageDir, or "".
func (c Character) ImagePath() string {
	if c.ImageDir == "" {
		return ""
	}

	for _, ext := range []string{"png", "jpg", "jpeg", "webp"} {
		matches, err := filepath.Glob(filepath.Join(c.ImageDir, "*."+ext))
		if err == nil && len(matches) > 0 {
			return matches[0]
		}
	}

	return ""
}
