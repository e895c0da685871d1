package models

import "time"

// Earning is an append-only ledger entry credited to an answerer when an
// answer is accepted. Rows are never updated or deleted.
type Earning struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AnswererID  uint      `gorm:"not null;index" json:"answerer_id"`
	QuestionID  uint      `gorm:"not null;uniqueIndex" json:"question_id"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (Earning) TableName() string {
	return "earnings"
}
