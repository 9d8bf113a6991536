package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

// Protagonist types and places the deriver can classify into.
const (
	ProtagonistChild  = "child"
	ProtagonistAnimal = "animal"
	ProtagonistRobot  = "robot"

	PlaceHouse    = "house"
	PlaceForest   = "forest"
	PlaceSea      = "sea"
	PlaceMountain = "mountain"
	PlacePark     = "park"
)

// DerivedSetting is the outcome of analyzing an image's vision metadata.
type DerivedSetting struct {
	TitleSuggestion string
	ProtagonistName string
	ProtagonistType string
	SettingPlace    string
	Tone            string
	TargetAge       string
	Language        string
	ReadingLevel    string
	StyleGuideline  map[string]any
	FaceDetected    bool
}

type StorySettingService interface {
	// DeriveForImage creates or refreshes the setting for an upload image
	// from its stored vision metadata (upsert, one setting per image).
	DeriveForImage(ctx context.Context, uploadImageID int64) (*types.StorySetting, error)
	GetSetting(ctx context.Context, settingID int64) (*types.StorySetting, error)
}

type storySettingService struct {
	db          *gorm.DB
	log         *logger.Logger
	settingRepo repos.StorySettingRepo
	imageRepo   repos.UploadImageRepo
	textGen     TextGenerator // nil disables face-based refinement
}

func NewStorySettingService(db *gorm.DB, log *logger.Logger, settingRepo repos.StorySettingRepo, imageRepo repos.UploadImageRepo, textGen TextGenerator) StorySettingService {
	return &storySettingService{
		db:          db,
		log:         log.With("service", "StorySettingService"),
		settingRepo: settingRepo,
		imageRepo:   imageRepo,
		textGen:     textGen,
	}
}

// DeriveFromAnalysis is the pure heuristic over the analysis payload. It
// tolerates both plain string lists and the structured vision shapes
// ({description} for labels/text, {name} for objects).
func DeriveFromAnalysis(metaData []byte) DerivedSetting {
	labels := extractStrings(metaData, "labels", "description")
	objects := extractStrings(metaData, "objects", "name")
	texts := extractStrings(metaData, "text", "description")

	derived := DerivedSetting{
		ProtagonistName: "the hero",
		ProtagonistType: ProtagonistChild,
		SettingPlace:    PlacePark,
		Tone:            types.ToneGentle,
		TargetAge:       types.TargetAgePreschool,
		Language:        "ja",
		ReadingLevel:    "hiragana_only",
		StyleGuideline: map[string]any{
			"mood": "warm and gentle, enjoyable for small children",
		},
	}

	if containsAny(labels, "cat", "dog", "animal") {
		derived.ProtagonistType = ProtagonistAnimal
	} else if containsAny(labels, "robot", "machine") {
		derived.ProtagonistType = ProtagonistRobot
	}

	switch {
	case containsAny(objects, "house", "home"):
		derived.SettingPlace = PlaceHouse
	case containsAny(objects, "forest", "tree"):
		derived.SettingPlace = PlaceForest
	case containsAny(objects, "sea", "ocean"):
		derived.SettingPlace = PlaceSea
	case containsAny(objects, "mountain", "hill"):
		derived.SettingPlace = PlaceMountain
	}

	// The first short detected text is a plausible protagonist name
	// (a name tag, a toy label, a drawing caption).
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if n := utf8.RuneCountInString(t); n >= 1 && n <= 12 && !strings.ContainsAny(t, "\n\r") {
			derived.ProtagonistName = t
			break
		}
	}

	derived.FaceDetected = hasEntries(metaData, "faces")
	derived.TitleSuggestion = fmt.Sprintf("The adventure of %s", derived.ProtagonistName)
	return derived
}

func (s *storySettingService) DeriveForImage(ctx context.Context, uploadImageID int64) (*types.StorySetting, error) {
	image, err := s.imageRepo.GetByID(ctx, nil, uploadImageID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	derived := DeriveFromAnalysis(image.MetaData)

	// Best-effort refinement: when a face is present, ask the text model
	// for a finer protagonist type. Failure never blocks the derivation.
	if derived.FaceDetected && derived.ProtagonistType == ProtagonistChild && s.textGen != nil {
		if refined := s.refineProtagonistType(ctx, image.MetaData); refined != "" {
			derived.ProtagonistType = refined
		}
	}

	styleJSON, _ := json.Marshal(derived.StyleGuideline)

	var setting *types.StorySetting
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, gerr := s.settingRepo.GetByUploadImageID(ctx, tx, uploadImageID)
		if gerr != nil && !errors.Is(gerr, gorm.ErrRecordNotFound) {
			return gerr
		}
		if existing == nil || errors.Is(gerr, gorm.ErrRecordNotFound) {
			setting = &types.StorySetting{
				UploadImageID:   uploadImageID,
				TitleSuggestion: derived.TitleSuggestion,
				ProtagonistName: derived.ProtagonistName,
				ProtagonistType: derived.ProtagonistType,
				SettingPlace:    derived.SettingPlace,
				Tone:            derived.Tone,
				TargetAge:       derived.TargetAge,
				Language:        derived.Language,
				ReadingLevel:    derived.ReadingLevel,
				StyleGuideline:  datatypes.JSON(styleJSON),
			}
			_, cerr := s.settingRepo.Create(ctx, tx, setting)
			return cerr
		}

		// Upsert preserving user edits: heuristic values only fill fields
		// that are still empty. A user-set protagonist name is never lost.
		if existing.ProtagonistName == "" {
			existing.ProtagonistName = derived.ProtagonistName
		}
		if existing.ProtagonistType == "" {
			existing.ProtagonistType = derived.ProtagonistType
		}
		if existing.SettingPlace == "" {
			existing.SettingPlace = derived.SettingPlace
		}
		if existing.Tone == "" {
			existing.Tone = derived.Tone
		}
		if existing.ReadingLevel == "" {
			existing.ReadingLevel = derived.ReadingLevel
		}
		if existing.TitleSuggestion == "" {
			existing.TitleSuggestion = derived.TitleSuggestion
		}
		if len(existing.StyleGuideline) == 0 {
			existing.StyleGuideline = datatypes.JSON(styleJSON)
		}
		setting = existing
		return s.settingRepo.Save(ctx, tx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Story setting derived", "setting_id", setting.ID, "upload_image_id", uploadImageID,
		"protagonist_type", setting.ProtagonistType, "setting_place", setting.SettingPlace)
	return setting, nil
}

func (s *storySettingService) GetSetting(ctx context.Context, settingID int64) (*types.StorySetting, error) {
	setting, err := s.settingRepo.GetByID(ctx, nil, settingID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return setting, nil
}

func (s *storySettingService) refineProtagonistType(ctx context.Context, metaData []byte) string {
	labels := extractStrings(metaData, "labels", "description")
	prompt := fmt.Sprintf(`A children's photo was analyzed and a human face was detected.
Image labels: %s.
Classify the likely protagonist for a picture book as exactly one of: "girl", "boy", "child".
Answer with JSON only: {"protagonist_type": "<value>"}`, strings.Join(labels, ", "))

	raw, err := s.textGen.GenerateJSON(ctx, prompt)
	if err != nil {
		s.log.Warn("Protagonist refinement failed, keeping heuristic value", "error", err)
		return ""
	}
	var out struct {
		ProtagonistType string `json:"protagonist_type"`
	}
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &out); err != nil {
		s.log.Warn("Protagonist refinement returned unparseable output", "error", err)
		return ""
	}
	switch out.ProtagonistType {
	case "girl", "boy", ProtagonistChild:
		return out.ProtagonistType
	}
	return ""
}

// extractStrings pulls a list out of the metadata JSON, accepting either
// plain strings or objects carrying the named field.
func extractStrings(metaData []byte, key, field string) []string {
	if len(metaData) == 0 {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(metaData, &doc); err != nil {
		return nil
	}
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err == nil {
			if v, ok := obj[field].(string); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

func hasEntries(metaData []byte, key string) bool {
	if len(metaData) == 0 {
		return false
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(metaData, &doc); err != nil {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(doc[key], &items); err != nil {
		return false
	}
	return len(items) > 0
}

func containsAny(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
