package models

import "time"

// PaymentEvent records every gateway delivery keyed by question id and event
// kind. The unique key is claimed before side effects run, so redelivery of
// the same event is a no-op.
type PaymentEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"size:20;not null;uniqueIndex:ux_payment_events_key,priority:1" json:"provider"`
	IdempotencyKey  string     `gorm:"size:191;not null;uniqueIndex:ux_payment_events_key,priority:2" json:"idempotency_key"`
	ProviderEventID string     `gorm:"size:191;index" json:"provider_event_id"`
	QuestionID      uint       `gorm:"index" json:"question_id"`
	Kind            string     `gorm:"size:20;not null" json:"kind"`
	PayloadJSON     string     `gorm:"type:text" json:"-"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}

func PaymentEventKey(questionID uint, kind string) string {
	return uintToString(questionID) + ":" + kind
}

// SessionEventKey scopes an event to one checkout session, so each session of
// a question can expire or fail once.
func SessionEventKey(questionID uint, kind, sessionID string) string {
	return PaymentEventKey(questionID, kind) + ":" + sessionID
}
