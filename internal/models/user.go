package models

import (
	"time"

	"qabackend/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:128" json:"name"`
	Role      string         `gorm:"size:20;not null;index" json:"role"` // QUESTIONER | ANSWERER | ADMIN
	AvatarURL string         `gorm:"size:512" json:"avatar_url"`
	FCMToken  string         `gorm:"size:512" json:"-"` // For push notifications
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuestionTypes []QuestionType `gorm:"foreignKey:AnswererID" json:"question_types,omitempty"`
}

func (u *User) IsAnswerer() bool { return u.Role == domain.RoleAnswerer }
func (u *User) IsAdmin() bool    { return u.Role == domain.RoleAdmin }
