package types

import (
	"time"
)

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserName  string    `gorm:"column:user_name;size:100;not null" json:"user_name"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }
