package types

import (
	"time"

	"gorm.io/datatypes"
)

// StoryPlot is the mutable working record for one generation request. It
// holds all three proposed themes; SelectedTheme stays empty until the user
// picks one, at which point that theme's pages are copied into Page1..Page5.
type StoryPlot struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	StorySettingID int64          `gorm:"column:story_setting_id;not null;index" json:"story_setting_id"`
	StorySetting   *StorySetting  `gorm:"foreignKey:StorySettingID;references:ID" json:"story_setting,omitempty"`
	UserID         int64          `gorm:"column:user_id;not null;index" json:"user_id"`
	Title          string         `gorm:"column:title;size:255" json:"title"`
	Description    string         `gorm:"column:description;type:text" json:"description"`
	ThemeOptions   datatypes.JSON `gorm:"type:jsonb;column:theme_options" json:"theme_options,omitempty"`
	SelectedTheme  string         `gorm:"column:selected_theme;size:255" json:"selected_theme"`
	Keywords       datatypes.JSON `gorm:"type:jsonb;column:keywords" json:"keywords,omitempty"`
	// Full generated narratives keyed by theme key; at most three entries.
	GeneratedStories    datatypes.JSON `gorm:"type:jsonb;column:generated_stories" json:"generated_stories,omitempty"`
	Page1               string         `gorm:"column:page_1;type:text" json:"page_1"`
	Page2               string         `gorm:"column:page_2;type:text" json:"page_2"`
	Page3               string         `gorm:"column:page_3;type:text" json:"page_3"`
	Page4               string         `gorm:"column:page_4;type:text" json:"page_4"`
	Page5               string         `gorm:"column:page_5;type:text" json:"page_5"`
	CurrentPage         int            `gorm:"column:current_page;not null;default:1" json:"current_page"`
	ConversationContext datatypes.JSON `gorm:"type:jsonb;column:conversation_context" json:"conversation_context,omitempty"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (StoryPlot) TableName() string { return "story_plots" }

// Page returns the text for page n (1..5). Empty string means not written.
func (p *StoryPlot) Page(n int) string {
	switch n {
	case 1:
		return p.Page1
	case 2:
		return p.Page2
	case 3:
		return p.Page3
	case 4:
		return p.Page4
	case 5:
		return p.Page5
	}
	return ""
}

// SetPage stores text for page n (1..5). Out-of-range n is ignored.
func (p *StoryPlot) SetPage(n int, text string) {
	switch n {
	case 1:
		p.Page1 = text
	case 2:
		p.Page2 = text
	case 3:
		p.Page3 = text
	case 4:
		p.Page4 = text
	case 5:
		p.Page5 = text
	}
}
