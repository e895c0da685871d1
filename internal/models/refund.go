package models

import "time"

// Refund tracks the single refund owed for an expired question. The row is
// written in the same transaction as the expiry so a refund is initiated at
// most once; failed attempts stay here for retry.
type Refund struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	QuestionID       uint       `gorm:"not null;uniqueIndex" json:"question_id"`
	PaymentIntentID  string     `gorm:"size:255;not null" json:"payment_intent_id"`
	AmountCents      int64      `gorm:"not null" json:"amount_cents"`
	Currency         string     `gorm:"size:3;not null" json:"currency"`
	Status           string     `gorm:"size:20;not null;index" json:"status"` // PENDING, SUCCEEDED, FAILED
	Attempts         int        `gorm:"not null;default:0" json:"attempts"`
	LastError        string     `gorm:"type:text" json:"last_error"`
	ProviderRefundID string     `gorm:"size:255" json:"provider_refund_id"`
	LastAttemptAt    *time.Time `json:"last_attempt_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Refund) TableName() string {
	return "refunds"
}

// IdempotencyKey is passed to the gateway so retries never double-refund.
func (r *Refund) IdempotencyKey() string {
	return "refund-question-" + uintToString(r.QuestionID)
}
