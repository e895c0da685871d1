package models

import (
	"time"

	"qabackend/internal/domain"

	"gorm.io/gorm"
)

// Question is a paid question addressed to one answerer. Price, currency and
// response time are copied from the QuestionType when the question is created
// so later edits to the type never move an in-flight deadline or price.
type Question struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	QuestionTypeID    uint           `gorm:"not null;index" json:"question_type_id"`
	QuestionerID      uint           `gorm:"not null;index" json:"questioner_id"`
	AnswererID        uint           `gorm:"not null;index:idx_questions_answerer_status,priority:1" json:"answerer_id"`
	Body              string         `gorm:"type:text;not null" json:"question"`
	Choices           string         `gorm:"type:text" json:"choices"`  // JSON array
	Pictures          string         `gorm:"type:text" json:"pictures"` // JSON array of URLs
	Status            string         `gorm:"size:20;not null;index:idx_questions_status_due,priority:1;index:idx_questions_answerer_status,priority:2" json:"status"`
	Paid              bool           `gorm:"not null;default:false" json:"paid"`
	PaymentIntentID   string         `gorm:"size:255;index" json:"-"`
	CheckoutSessionID string         `gorm:"size:255;index" json:"-"`
	CheckoutURL       string         `gorm:"size:512" json:"-"`
	CheckoutExpiresAt *time.Time     `json:"-"`
	PriceCents        int64          `gorm:"not null" json:"price_cents"`
	Currency          string         `gorm:"size:3;not null" json:"currency"`
	ResponseTimeHours int            `gorm:"not null" json:"response_time_hours"`
	DeadlineAnchor    string         `gorm:"size:10;not null" json:"-"`
	PaidAt            *time.Time     `json:"paid_at"`
	DueAt             *time.Time     `gorm:"index:idx_questions_status_due,priority:2" json:"due_at"`
	AnsweredAt        *time.Time     `json:"answered_at"`
	ExpiredAt         *time.Time     `json:"expired_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Answer *Answer `gorm:"foreignKey:QuestionID" json:"answer,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) IsPending() bool { return q.Status == domain.QuestionStatusPending }
func (q *Question) IsTerminal() bool {
	return q.Status == domain.QuestionStatusAnswered || q.Status == domain.QuestionStatusExpired
}
