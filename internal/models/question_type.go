package models

import (
	"time"

	"gorm.io/gorm"
)

// QuestionType is an answerer-owned offer: what kind of question, its price
// and the response window in hours.
type QuestionType struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	AnswererID             uint           `gorm:"not null;index" json:"answerer_id"`
	Kind                   string         `gorm:"size:20;not null" json:"type"` // TEXT, MULTIPLE_CHOICE, PICTURE
	PriceCents             int64          `gorm:"not null" json:"price_cents"`
	Currency               string         `gorm:"size:3;not null;default:'usd'" json:"currency"`
	ResponseTimeHours      int            `gorm:"not null;default:24" json:"response_time"`
	NumberOfChoiceOptions  int            `gorm:"default:2" json:"number_of_choice_options"`
	NumberOfPictureOptions int            `gorm:"default:2" json:"number_of_picture_options"`
	Enabled                bool           `gorm:"not null;default:false" json:"enabled"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (QuestionType) TableName() string {
	return "question_types"
}
