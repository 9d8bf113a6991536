package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

const storyPageCount = 5

// ThemeProposal is the outcome of ProposeThemes. Fallback marks stub content
// produced because the text provider failed; callers can tell real themes
// from templated ones.
type ThemeProposal struct {
	Plot         *types.StoryPlot
	ThemeOptions types.ThemeOptionMap
	Fallback     bool
}

// SelectedStory is the outcome of SelectTheme.
type SelectedStory struct {
	Plot     *types.StoryPlot
	Story    types.GeneratedStory
	Fallback bool
}

// StoryPlotService drives the theme-proposal / theme-selection workflow.
//
// Lifecycle per story setting: no plot -> themes proposed -> theme selected
// with all five pages generated. Theme metadata is generated up front; page
// text is deferred to selection time to keep the first step fast and avoid
// generating narratives nobody picks.
type StoryPlotService interface {
	ProposeThemes(ctx context.Context, settingID int64) (*ThemeProposal, error)
	SelectTheme(ctx context.Context, settingID int64, themeKey string) (*SelectedStory, error)
	GetPlot(ctx context.Context, plotID int64) (*types.StoryPlot, error)
	ListUserPlots(ctx context.Context, userID int64) ([]*types.StoryPlot, error)
}

type storyPlotService struct {
	db          *gorm.DB
	log         *logger.Logger
	settingRepo repos.StorySettingRepo
	plotRepo    repos.StoryPlotRepo
	imageRepo   repos.UploadImageRepo
	textGen     TextGenerator
	group       singleflight.Group
}

func NewStoryPlotService(db *gorm.DB, log *logger.Logger, settingRepo repos.StorySettingRepo, plotRepo repos.StoryPlotRepo, imageRepo repos.UploadImageRepo, textGen TextGenerator) StoryPlotService {
	return &storyPlotService{
		db:          db,
		log:         log.With("service", "StoryPlotService"),
		settingRepo: settingRepo,
		plotRepo:    plotRepo,
		imageRepo:   imageRepo,
		textGen:     textGen,
	}
}

func (s *storyPlotService) ProposeThemes(ctx context.Context, settingID int64) (*ThemeProposal, error) {
	v, err, _ := s.group.Do(fmt.Sprintf("propose:%d", settingID), func() (interface{}, error) {
		return s.proposeThemes(ctx, settingID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ThemeProposal), nil
}

func (s *storyPlotService) proposeThemes(ctx context.Context, settingID int64) (*ThemeProposal, error) {
	setting, err := s.settingRepo.GetByID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	userID, err := s.ownerOf(ctx, setting)
	if err != nil {
		return nil, err
	}

	themes, fallback := s.generateThemeOptions(ctx, setting)

	themesJSON, err := themes.ToJSON()
	if err != nil {
		return nil, err
	}
	emptyStories, _ := types.GeneratedStoryMap{}.ToJSON()

	first := themes["theme1"]
	plot := &types.StoryPlot{
		StorySettingID:      settingID,
		UserID:              userID,
		Title:               first.Title,
		Description:         first.Description,
		ThemeOptions:        themesJSON,
		Keywords:            types.KeywordsToJSON(first.Keywords),
		GeneratedStories:    emptyStories,
		CurrentPage:         1,
		ConversationContext: []byte(`{}`),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, cerr := s.plotRepo.Create(ctx, tx, plot)
		return cerr
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Themes proposed", "plot_id", plot.ID, "setting_id", settingID, "fallback", fallback)
	return &ThemeProposal{Plot: plot, ThemeOptions: themes, Fallback: fallback}, nil
}

func (s *storyPlotService) SelectTheme(ctx context.Context, settingID int64, themeKey string) (*SelectedStory, error) {
	v, err, _ := s.group.Do(fmt.Sprintf("select:%d:%s", settingID, themeKey), func() (interface{}, error) {
		return s.selectTheme(ctx, settingID, themeKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SelectedStory), nil
}

func (s *storyPlotService) selectTheme(ctx context.Context, settingID int64, themeKey string) (*SelectedStory, error) {
	setting, err := s.settingRepo.GetByID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	plot, err := s.plotRepo.GetLatestBySettingID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	themes, err := types.ThemeOptionsFromJSON(plot.ThemeOptions)
	if err != nil {
		return nil, fmt.Errorf("malformed theme options on plot %d: %w", plot.ID, err)
	}
	theme, ok := themes[themeKey]
	if !ok {
		// Unknown key: fail before any mutation.
		return nil, fmt.Errorf("%w: %q is not among the proposed themes", ErrThemeNotFound, themeKey)
	}

	stories, err := types.GeneratedStoriesFromJSON(plot.GeneratedStories)
	if err != nil {
		return nil, fmt.Errorf("malformed generated stories on plot %d: %w", plot.ID, err)
	}

	fallback := false
	story, have := stories[themeKey]
	if !have || len(story.Pages) != storyPageCount {
		story, fallback = s.generateStory(ctx, setting, theme)
		stories[themeKey] = story
	}

	storiesJSON, err := stories.ToJSON()
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		plot.SelectedTheme = themeKey
		plot.Title = story.Title
		plot.Description = theme.Description
		plot.Keywords = types.KeywordsToJSON(theme.Keywords)
		plot.GeneratedStories = storiesJSON
		for i, text := range story.Pages {
			plot.SetPage(i+1, text)
		}
		return s.plotRepo.Save(ctx, tx, plot)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Theme selected", "plot_id", plot.ID, "theme", themeKey, "fallback", fallback)
	return &SelectedStory{Plot: plot, Story: story, Fallback: fallback}, nil
}

func (s *storyPlotService) GetPlot(ctx context.Context, plotID int64) (*types.StoryPlot, error) {
	plot, err := s.plotRepo.GetByID(ctx, nil, plotID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return plot, nil
}

func (s *storyPlotService) ListUserPlots(ctx context.Context, userID int64) ([]*types.StoryPlot, error) {
	return s.plotRepo.ListByUser(ctx, nil, userID)
}

// ownerOf resolves the user owning a setting via its upload image.
func (s *storyPlotService) ownerOf(ctx context.Context, setting *types.StorySetting) (int64, error) {
	if setting.UploadImage != nil {
		return setting.UploadImage.UserID, nil
	}
	image, err := s.imageRepo.GetByID(ctx, nil, setting.UploadImageID)
	if err != nil {
		return 0, notFoundOr(err)
	}
	return image.UserID, nil
}

// --- prompt building and response parsing ---

var toneDescriptions = map[string]string{
	types.ToneGentle:    "gentle and warm",
	types.ToneFun:       "fun and bright",
	types.ToneAdventure: "adventurous and exciting",
	types.ToneMystery:   "a thrilling mystery",
}

var ageDescriptions = map[string]string{
	types.TargetAgePreschool:     "preschoolers aged 3-6",
	types.TargetAgeElementaryLow: "early elementary readers aged 7-9",
}

func settingAttr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func themePrompt(setting *types.StorySetting) string {
	tone := toneDescriptions[setting.Tone]
	if tone == "" {
		tone = toneDescriptions[types.ToneGentle]
	}
	age := ageDescriptions[setting.TargetAge]
	if age == "" {
		age = ageDescriptions[types.TargetAgePreschool]
	}
	return fmt.Sprintf(`You are a story planner for children's picture books.
Based on the settings below, propose exactly three different story themes.

Settings:
- Protagonist: %s (a %s)
- Place: %s
- Mood: %s
- Audience: %s
- Reading level: %s

Requirements:
1. Three clearly different themes (for example adventure, friendship, discovery).
2. Each theme needs a title, a one-paragraph description, and exactly 3 keywords.
3. Content children enjoy, with a gentle educational element.

Output JSON only, in exactly this shape:
{
  "theme_options": {
    "theme1": {"theme_id": "adventure", "title": "...", "description": "...", "keywords": ["...", "...", "..."]},
    "theme2": {...},
    "theme3": {...}
  }
}`,
		settingAttr(setting.ProtagonistName, "the hero"),
		settingAttr(setting.ProtagonistType, ProtagonistChild),
		settingAttr(setting.SettingPlace, PlacePark),
		tone, age,
		settingAttr(setting.ReadingLevel, "hiragana_only"))
}

func storyPrompt(setting *types.StorySetting, theme types.ThemeOption) string {
	return fmt.Sprintf(`Write a five-page children's picture-book story for the theme "%s" (%s).

Settings:
- Protagonist: %s (a %s)
- Place: %s
- Audience: %s

Each page is two or three short sentences a child can follow.

Output JSON only, in exactly this shape:
{
  "title": "...",
  "pages": ["page 1 text", "page 2 text", "page 3 text", "page 4 text", "page 5 text"]
}`,
		theme.Title, theme.Description,
		settingAttr(setting.ProtagonistName, "the hero"),
		settingAttr(setting.ProtagonistType, ProtagonistChild),
		settingAttr(setting.SettingPlace, PlacePark),
		ageDescriptions[settingAttr(setting.TargetAge, types.TargetAgePreschool)])
}

// generateThemeOptions asks the provider for three themes; on any failure it
// degrades to the deterministic template so the user flow stays alive.
func (s *storyPlotService) generateThemeOptions(ctx context.Context, setting *types.StorySetting) (types.ThemeOptionMap, bool) {
	raw, err := s.textGen.GenerateJSON(ctx, themePrompt(setting))
	if err != nil {
		s.log.Warn("Theme generation failed, using fallback themes", "setting_id", setting.ID, "error", err)
		return fallbackThemes(setting), true
	}
	themes, err := parseThemeResponse(raw)
	if err != nil {
		s.log.Warn("Theme response unparseable, using fallback themes", "setting_id", setting.ID, "error", err)
		return fallbackThemes(setting), true
	}
	return themes, false
}

// generateStory asks the provider for the five-page narrative; same fallback
// policy as theme generation.
func (s *storyPlotService) generateStory(ctx context.Context, setting *types.StorySetting, theme types.ThemeOption) (types.GeneratedStory, bool) {
	raw, err := s.textGen.GenerateJSON(ctx, storyPrompt(setting, theme))
	if err != nil {
		s.log.Warn("Story generation failed, using fallback story", "setting_id", setting.ID, "theme", theme.Title, "error", err)
		return fallbackStory(setting, theme), true
	}
	story, err := parseStoryResponse(raw)
	if err != nil {
		s.log.Warn("Story response unparseable, using fallback story", "setting_id", setting.ID, "theme", theme.Title, "error", err)
		return fallbackStory(setting, theme), true
	}
	return story, false
}

// stripJSONFences removes a surrounding markdown code fence if present.
func stripJSONFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		raw = raw[idx+len("```json"):]
		if end := strings.Index(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
		return strings.TrimSpace(raw)
	}
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if end := strings.LastIndex(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
		return strings.TrimSpace(raw)
	}
	return raw
}

func parseThemeResponse(raw string) (types.ThemeOptionMap, error) {
	var payload struct {
		ThemeOptions types.ThemeOptionMap `json:"theme_options"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("theme response is not valid JSON: %w", err)
	}
	themes := payload.ThemeOptions
	for _, key := range types.ThemeKeys {
		theme, ok := themes[key]
		if !ok {
			return nil, fmt.Errorf("theme response is missing %q", key)
		}
		if strings.TrimSpace(theme.Title) == "" {
			return nil, fmt.Errorf("theme %q has an empty title", key)
		}
		if len(theme.Keywords) < 3 {
			return nil, fmt.Errorf("theme %q has %d keywords, want 3", key, len(theme.Keywords))
		}
		theme.Keywords = theme.Keywords[:3]
		themes[key] = theme
	}
	return themes, nil
}

func parseStoryResponse(raw string) (types.GeneratedStory, error) {
	var story types.GeneratedStory
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &story); err != nil {
		return types.GeneratedStory{}, fmt.Errorf("story response is not valid JSON: %w", err)
	}
	if strings.TrimSpace(story.Title) == "" {
		return types.GeneratedStory{}, fmt.Errorf("story response has an empty title")
	}
	if len(story.Pages) != storyPageCount {
		return types.GeneratedStory{}, fmt.Errorf("story response has %d pages, want %d", len(story.Pages), storyPageCount)
	}
	for i, page := range story.Pages {
		if strings.TrimSpace(page) == "" {
			return types.GeneratedStory{}, fmt.Errorf("story response page %d is empty", i+1)
		}
	}
	return story, nil
}

// fallbackThemes is the deterministic three-theme template used when the
// provider is unavailable or returns garbage.
func fallbackThemes(setting *types.StorySetting) types.ThemeOptionMap {
	name := settingAttr(setting.ProtagonistName, "the hero")
	place := settingAttr(setting.SettingPlace, PlacePark)
	return types.ThemeOptionMap{
		"theme1": {
			ThemeID:     "adventure",
			Title:       fmt.Sprintf("%s's adventure", name),
			Description: fmt.Sprintf("A story where %s sets off on an adventure in the %s.", name, place),
			Keywords:    []string{"adventure", "courage", "challenge"},
		},
		"theme2": {
			ThemeID:     "friendship",
			Title:       fmt.Sprintf("%s's new friend", name),
			Description: fmt.Sprintf("A story where %s meets a new friend in the %s.", name, place),
			Keywords:    []string{"friendship", "kindness", "cooperation"},
		},
		"theme3": {
			ThemeID:     "discovery",
			Title:       fmt.Sprintf("%s's curious discovery", name),
			Description: fmt.Sprintf("A story where %s finds something mysterious in the %s.", name, place),
			Keywords:    []string{"discovery", "exploration", "curiosity"},
		},
	}
}

func fallbackStory(setting *types.StorySetting, theme types.ThemeOption) types.GeneratedStory {
	name := settingAttr(setting.ProtagonistName, "the hero")
	place := settingAttr(setting.SettingPlace, PlacePark)
	return types.GeneratedStory{
		Title: theme.Title,
		Pages: []string{
			fmt.Sprintf("Once upon a time, %s was playing in the %s.", name, place),
			"Then something wonderful happened.",
			fmt.Sprintf("%s gathered all their courage and stepped forward.", name),
			"Together with a friend, they worked it out.",
			fmt.Sprintf("%s learned something precious that day and grew a little.", name),
		},
	}
}
