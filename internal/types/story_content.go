package types

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Theme keys used in StoryPlot.ThemeOptions and GeneratedStories.
var ThemeKeys = []string{"theme1", "theme2", "theme3"}

// ThemeOption is one AI-proposed narrative premise.
type ThemeOption struct {
	ThemeID     string   `json:"theme_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// GeneratedStory is the full five-page narrative for one theme.
type GeneratedStory struct {
	Title string   `json:"title"`
	Pages []string `json:"pages"`
}

// ThemeOptionMap is the jsonb shape of StoryPlot.ThemeOptions.
type ThemeOptionMap map[string]ThemeOption

// GeneratedStoryMap is the jsonb shape of StoryPlot.GeneratedStories.
type GeneratedStoryMap map[string]GeneratedStory

func (m ThemeOptionMap) ToJSON() (datatypes.JSON, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func ThemeOptionsFromJSON(raw datatypes.JSON) (ThemeOptionMap, error) {
	m := ThemeOptionMap{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m GeneratedStoryMap) ToJSON() (datatypes.JSON, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func GeneratedStoriesFromJSON(raw datatypes.JSON) (GeneratedStoryMap, error) {
	m := GeneratedStoryMap{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func KeywordsToJSON(keywords []string) datatypes.JSON {
	b, err := json.Marshal(keywords)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

func KeywordsFromJSON(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
