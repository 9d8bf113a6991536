package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

// QuestionOption is one choice of a single-select question.
type QuestionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question describes one completion question for a story setting.
type Question struct {
	Field       string           `json:"field"`
	Question    string           `json:"question"`
	Type        string           `json:"type"` // "text_input" or "select"
	Placeholder string           `json:"placeholder,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	Required    bool             `json:"required"`
}

// CompletionStatus reports how complete a story setting is. Required fields
// are fixed; reading_level is collected but does not count toward completion.
type CompletionStatus struct {
	StorySettingID       int64    `json:"story_setting_id"`
	CompletionPercentage float64  `json:"completion_percentage"`
	CompletedFields      []string `json:"completed_fields"`
	MissingFields        []string `json:"missing_fields"`
	IsComplete           bool     `json:"is_complete"`
}

// AnsweredField is one entry of the question history.
type AnsweredField struct {
	Field      string `json:"field"`
	Answer     string `json:"answer"`
	AnsweredAt string `json:"answered_at"`
}

var requiredSettingFields = []string{"protagonist_name", "setting_place", "tone", "target_age"}

// answerableSettingFields is the closed set SubmitAnswer accepts.
var answerableSettingFields = map[string]bool{
	"protagonist_name": true,
	"protagonist_type": true,
	"setting_place":    true,
	"tone":             true,
	"target_age":       true,
	"reading_level":    true,
}

var settingSelectOptions = map[string][]QuestionOption{
	"setting_place": {
		{Value: "forest", Label: "Forest"},
		{Value: "park", Label: "Park"},
		{Value: "sea", Label: "Sea"},
		{Value: "space", Label: "Space"},
		{Value: "house", Label: "Home"},
		{Value: "school", Label: "School"},
		{Value: "city", Label: "Town"},
		{Value: "mountain", Label: "Mountain"},
		{Value: "garden", Label: "Garden"},
	},
	"tone": {
		{Value: types.ToneGentle, Label: "Gentle and warm"},
		{Value: types.ToneFun, Label: "Fun and bright"},
		{Value: types.ToneAdventure, Label: "Adventurous and exciting"},
		{Value: types.ToneMystery, Label: "A thrilling mystery"},
	},
	"target_age": {
		{Value: types.TargetAgePreschool, Label: "Preschool (3-6)"},
		{Value: types.TargetAgeElementaryLow, Label: "Early elementary (7-9)"},
	},
	"reading_level": {
		{Value: "hiragana_only", Label: "Hiragana only"},
		{Value: "hiragana_katakana", Label: "Hiragana and katakana"},
		{Value: "basic_kanji", Label: "Including basic kanji"},
		{Value: "normal", Label: "Standard"},
	},
}

type QuestionService interface {
	// GetQuestions always returns the full fixed question list (always-ask
	// variant), so re-calling it is idempotent.
	GetQuestions(ctx context.Context, settingID int64) ([]Question, error)
	// SubmitAnswer updates exactly one field. An unknown field is rejected
	// with ErrUnknownField rather than silently ignored.
	SubmitAnswer(ctx context.Context, settingID int64, field, answer string) (*types.StorySetting, error)
	GetCompletionStatus(ctx context.Context, settingID int64) (*CompletionStatus, error)
	GetQuestionHistory(ctx context.Context, settingID int64) ([]AnsweredField, error)
}

type questionService struct {
	db          *gorm.DB
	log         *logger.Logger
	settingRepo repos.StorySettingRepo
}

func NewQuestionService(db *gorm.DB, log *logger.Logger, settingRepo repos.StorySettingRepo) QuestionService {
	return &questionService{
		db:          db,
		log:         log.With("service", "QuestionService"),
		settingRepo: settingRepo,
	}
}

func nameSuggestion(protagonistType string) string {
	switch protagonistType {
	case "girl":
		return "(e.g. Aoi, Midori, Hana)"
	case "boy":
		return "(e.g. Taro, Kenta, Yuto)"
	case ProtagonistAnimal:
		return "(e.g. Kitty, Wanko, Usa-chan)"
	case ProtagonistRobot:
		return "(e.g. Robo, Tek, Beam)"
	}
	return "(e.g. the hero's name)"
}

func (s *questionService) GetQuestions(ctx context.Context, settingID int64) ([]Question, error) {
	setting, err := s.settingRepo.GetByID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	questions := []Question{
		{
			Field:       "protagonist_name",
			Question:    fmt.Sprintf("What is the hero's name? %s", nameSuggestion(setting.ProtagonistType)),
			Type:        "text_input",
			Placeholder: "e.g. Taro",
			Required:    true,
		},
		{
			Field:    "setting_place",
			Question: "Where does the story take place?",
			Type:     "select",
			Options:  settingSelectOptions["setting_place"],
			Required: true,
		},
		{
			Field:    "tone",
			Question: "What mood should the story have?",
			Type:     "select",
			Options:  settingSelectOptions["tone"],
			Required: true,
		},
		{
			Field:    "target_age",
			Question: "How old is the child?",
			Type:     "select",
			Options:  settingSelectOptions["target_age"],
			Required: true,
		},
		{
			Field:    "reading_level",
			Question: "Which reading level fits best?",
			Type:     "select",
			Options:  settingSelectOptions["reading_level"],
			Required: false,
		},
	}
	return questions, nil
}

func (s *questionService) SubmitAnswer(ctx context.Context, settingID int64, field, answer string) (*types.StorySetting, error) {
	if !answerableSettingFields[field] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if answer == "" {
		return nil, fmt.Errorf("%w: answer must not be empty", ErrValidation)
	}
	if options, ok := settingSelectOptions[field]; ok {
		valid := false
		for _, opt := range options {
			if opt.Value == answer {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("%w: %q is not a valid value for %s", ErrValidation, answer, field)
		}
	}

	var setting *types.StorySetting
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var gerr error
		setting, gerr = s.settingRepo.GetByID(ctx, tx, settingID)
		if gerr != nil {
			return notFoundOr(gerr)
		}
		switch field {
		case "protagonist_name":
			setting.ProtagonistName = answer
		case "protagonist_type":
			setting.ProtagonistType = answer
		case "setting_place":
			setting.SettingPlace = answer
		case "tone":
			setting.Tone = answer
		case "target_age":
			setting.TargetAge = answer
		case "reading_level":
			setting.ReadingLevel = answer
		}
		return s.settingRepo.Save(ctx, tx, setting)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Answer recorded", "setting_id", settingID, "field", field)
	return setting, nil
}

func settingFieldValue(setting *types.StorySetting, field string) string {
	switch field {
	case "protagonist_name":
		return setting.ProtagonistName
	case "protagonist_type":
		return setting.ProtagonistType
	case "setting_place":
		return setting.SettingPlace
	case "tone":
		return setting.Tone
	case "target_age":
		return setting.TargetAge
	case "reading_level":
		return setting.ReadingLevel
	}
	return ""
}

func (s *questionService) GetCompletionStatus(ctx context.Context, settingID int64) (*CompletionStatus, error) {
	setting, err := s.settingRepo.GetByID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	status := &CompletionStatus{
		StorySettingID:  settingID,
		CompletedFields: []string{},
		MissingFields:   []string{},
	}
	for _, field := range requiredSettingFields {
		if settingFieldValue(setting, field) != "" {
			status.CompletedFields = append(status.CompletedFields, field)
		} else {
			status.MissingFields = append(status.MissingFields, field)
		}
	}
	status.CompletionPercentage = float64(len(status.CompletedFields)) / float64(len(requiredSettingFields)) * 100
	status.IsComplete = len(status.MissingFields) == 0
	return status, nil
}

func (s *questionService) GetQuestionHistory(ctx context.Context, settingID int64) ([]AnsweredField, error) {
	setting, err := s.settingRepo.GetByID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	history := []AnsweredField{}
	for _, field := range append(append([]string{}, requiredSettingFields...), "reading_level") {
		if value := settingFieldValue(setting, field); value != "" {
			history = append(history, AnsweredField{
				Field:      field,
				Answer:     value,
				AnsweredAt: setting.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			})
		}
	}
	return history, nil
}
