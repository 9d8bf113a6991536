package types

import (
	"time"

	"gorm.io/datatypes"
)

// UploadImage is a photo uploaded by a user. MetaData holds the raw
// vision-analysis payload and is backfilled once, right after upload.
type UploadImage struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64          `gorm:"column:user_id;not null;index" json:"user_id"`
	User        *User          `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	FileName    string         `gorm:"column:file_name;size:255;not null" json:"file_name"`
	FilePath    string         `gorm:"column:file_path;size:512;not null" json:"file_path"`
	PublicURL   string         `gorm:"column:public_url;size:512" json:"public_url"`
	ContentType string         `gorm:"column:content_type;size:100;not null" json:"content_type"`
	SizeBytes   int64          `gorm:"column:size_bytes;not null" json:"size_bytes"`
	MetaData    datatypes.JSON `gorm:"type:jsonb;column:meta_data" json:"meta_data,omitempty"`
	UploadedAt  time.Time      `gorm:"column:uploaded_at;not null" json:"uploaded_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (UploadImage) TableName() string { return "upload_images" }
