package types

import (
	"time"

	"gorm.io/datatypes"
)

// Tone values accepted for StorySetting.Tone.
const (
	ToneGentle    = "gentle"
	ToneFun       = "fun"
	ToneAdventure = "adventure"
	ToneMystery   = "mystery"
)

// Target age values accepted for StorySetting.TargetAge.
const (
	TargetAgePreschool     = "preschool"
	TargetAgeElementaryLow = "elementary_low"
)

// StorySetting holds the narrative parameters derived from an uploaded image
// and refined by user answers. At most one setting exists per upload image.
type StorySetting struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UploadImageID   int64          `gorm:"column:upload_image_id;not null;uniqueIndex" json:"upload_image_id"`
	UploadImage     *UploadImage   `gorm:"foreignKey:UploadImageID;references:ID" json:"upload_image,omitempty"`
	TitleSuggestion string         `gorm:"column:title_suggestion;size:255" json:"title_suggestion"`
	ProtagonistName string         `gorm:"column:protagonist_name;size:100" json:"protagonist_name"`
	ProtagonistType string         `gorm:"column:protagonist_type;size:80" json:"protagonist_type"`
	SettingPlace    string         `gorm:"column:setting_place;size:120" json:"setting_place"`
	Tone            string         `gorm:"column:tone;size:30" json:"tone"`
	TargetAge       string         `gorm:"column:target_age;size:30;not null;default:'preschool'" json:"target_age"`
	Language        string         `gorm:"column:language;size:10;not null;default:'ja'" json:"language"`
	ReadingLevel    string         `gorm:"column:reading_level;size:30" json:"reading_level"`
	StyleGuideline  datatypes.JSON `gorm:"type:jsonb;column:style_guideline" json:"style_guideline,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (StorySetting) TableName() string { return "story_settings" }
