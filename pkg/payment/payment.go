package payment

import (
	"context"
	"errors"
	"time"
)

// Event kinds delivered to the lifecycle engine, normalized across providers.
const (
	EventCompleted = "completed"
	EventExpired   = "expired"
	EventFailed    = "failed"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnhandledEvent marks an authentic delivery the core does not act on.
	ErrUnhandledEvent = errors.New("unhandled webhook event")
)

type CheckoutRequest struct {
	QuestionID     uint
	QuestionerID   uint
	AmountCents    int64
	Currency       string
	Description    string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
	// ExpiresAt closes the session early; zero keeps the provider default.
	ExpiresAt time.Time
}

type CheckoutSession struct {
	ID        string    `json:"session_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Event is an authenticated gateway notification about one question's checkout.
type Event struct {
	ID                string
	Provider          string
	Kind              string
	QuestionID        uint
	PaymentIntentID   string
	CheckoutSessionID string
	Payload           []byte
}

type RefundRequest struct {
	QuestionID      uint
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	IdempotencyKey  string
}

type RefundResult struct {
	ID     string
	Status string
}

// Gateway is the payment provider used for question checkout and refunds.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseEvent authenticates a webhook body and maps it onto an Event.
	ParseEvent(payload []byte, signatureHeader string) (*Event, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
