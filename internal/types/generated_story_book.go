package types

import (
	"time"

	"gorm.io/datatypes"
)

// Image generation lifecycle of a finished book.
const (
	ImageGenStatusPending    = "pending"
	ImageGenStatusGenerating = "generating"
	ImageGenStatusCompleted  = "completed"
	ImageGenStatusFailed     = "failed"
)

// GeneratedStoryBook is the immutable snapshot of a confirmed plot. Page
// texts are copied at confirmation time and never track later plot edits;
// only the image URL fields and the status are filled in afterwards.
type GeneratedStoryBook struct {
	ID                    int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	StoryPlotID           int64          `gorm:"column:story_plot_id;not null;index" json:"story_plot_id"`
	StoryPlot             *StoryPlot     `gorm:"foreignKey:StoryPlotID;references:ID" json:"story_plot,omitempty"`
	UserID                int64          `gorm:"column:user_id;not null;index" json:"user_id"`
	Title                 string         `gorm:"column:title;size:255;not null" json:"title"`
	Description           string         `gorm:"column:description;type:text" json:"description"`
	Keywords              datatypes.JSON `gorm:"type:jsonb;column:keywords" json:"keywords,omitempty"`
	StoryContent          string         `gorm:"column:story_content;type:text;not null" json:"story_content"`
	Page1                 string         `gorm:"column:page_1;type:text;not null" json:"page_1"`
	Page2                 string         `gorm:"column:page_2;type:text;not null" json:"page_2"`
	Page3                 string         `gorm:"column:page_3;type:text;not null" json:"page_3"`
	Page4                 string         `gorm:"column:page_4;type:text;not null" json:"page_4"`
	Page5                 string         `gorm:"column:page_5;type:text;not null" json:"page_5"`
	Page1ImageURL         string         `gorm:"column:page_1_image_url;size:512" json:"page_1_image_url"`
	Page2ImageURL         string         `gorm:"column:page_2_image_url;size:512" json:"page_2_image_url"`
	Page3ImageURL         string         `gorm:"column:page_3_image_url;size:512" json:"page_3_image_url"`
	Page4ImageURL         string         `gorm:"column:page_4_image_url;size:512" json:"page_4_image_url"`
	Page5ImageURL         string         `gorm:"column:page_5_image_url;size:512" json:"page_5_image_url"`
	ImageGenerationStatus string         `gorm:"column:image_generation_status;size:20;not null;default:'pending'" json:"image_generation_status"`
	CreatedAt             time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"not null" json:"updated_at"`
}

func (GeneratedStoryBook) TableName() string { return "generated_story_books" }

// Page returns the text for page n (1..5).
func (b *GeneratedStoryBook) Page(n int) string {
	switch n {
	case 1:
		return b.Page1
	case 2:
		return b.Page2
	case 3:
		return b.Page3
	case 4:
		return b.Page4
	case 5:
		return b.Page5
	}
	return ""
}

// PageImageURL returns the illustration URL for page n (1..5).
func (b *GeneratedStoryBook) PageImageURL(n int) string {
	switch n {
	case 1:
		return b.Page1ImageURL
	case 2:
		return b.Page2ImageURL
	case 3:
		return b.Page3ImageURL
	case 4:
		return b.Page4ImageURL
	case 5:
		return b.Page5ImageURL
	}
	return ""
}

// SetPageImageURL stores the illustration URL for page n (1..5).
func (b *GeneratedStoryBook) SetPageImageURL(n int, url string) {
	switch n {
	case 1:
		b.Page1ImageURL = url
	case 2:
		b.Page2ImageURL = url
	case 3:
		b.Page3ImageURL = url
	case 4:
		b.Page4ImageURL = url
	case 5:
		b.Page5ImageURL = url
	}
}
