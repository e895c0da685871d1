package models

import "time"

type Answer struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	QuestionID uint       `gorm:"not null;uniqueIndex" json:"question_id"`
	AnswererID uint       `gorm:"not null;index" json:"answerer_id"`
	Body       string     `gorm:"type:text;not null" json:"answer"`
	Rate       *int       `json:"rate,omitempty"`
	Review     string     `gorm:"type:text" json:"review,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Answer) TableName() string {
	return "answers"
}
