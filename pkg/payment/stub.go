package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const StubSignatureHeader = "X-Webhook-Signature"

// StubGateway is a development gateway. Webhook bodies are JSON signed with
// hex HMAC-SHA256 of the body in X-Webhook-Signature; refunds succeed in
// memory unless RefundErr is set.
type StubGateway struct {
	secret      string
	checkoutURL string

	mu        sync.Mutex
	refunds   []RefundRequest
	calls     int
	refundErr error
}

func NewStubGateway(secret, checkoutURL string) *StubGateway {
	if checkoutURL == "" {
		checkoutURL = "http://localhost:8099/stub-checkout"
	}
	return &StubGateway{secret: secret, checkoutURL: checkoutURL}
}

func (s *StubGateway) Name() string { return "stub" }

func (s *StubGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	id := fmt.Sprintf("cs_stub_%d_%d", req.QuestionID, time.Now().UnixNano())
	expires := req.ExpiresAt
	if expires.IsZero() {
		expires = time.Now().Add(30 * time.Minute)
	}
	return &CheckoutSession{
		ID:        id,
		URL:       s.checkoutURL + "?session_id=" + id,
		ExpiresAt: expires,
	}, nil
}

// StubEvent is the wire format accepted by StubGateway.ParseEvent.
type StubEvent struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	QuestionID      uint   `json:"question_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	SessionID       string `json:"session_id"`
}

func (s *StubGateway) ParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	if !hmac.Equal([]byte(signatureHeader), []byte(s.Sign(payload))) {
		return nil, ErrInvalidSignature
	}
	var in StubEvent
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("decode stub event: %w", err)
	}
	switch in.Type {
	case EventCompleted, EventExpired, EventFailed:
	default:
		return nil, ErrUnhandledEvent
	}
	if in.QuestionID == 0 {
		return nil, fmt.Errorf("stub event %q: missing question_id", in.ID)
	}
	return &Event{
		ID:                in.ID,
		Provider:          s.Name(),
		Kind:              in.Type,
		QuestionID:        in.QuestionID,
		PaymentIntentID:   in.PaymentIntentID,
		CheckoutSessionID: in.SessionID,
		Payload:           payload,
	}, nil
}

// Sign returns the signature header value for body.
func (s *StubGateway) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *StubGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	for i, prev := range s.refunds {
		if prev.IdempotencyKey == req.IdempotencyKey {
			return &RefundResult{ID: "re_stub_" + strconv.Itoa(i+1), Status: "succeeded"}, nil
		}
	}
	s.refunds = append(s.refunds, req)
	return &RefundResult{ID: "re_stub_" + strconv.Itoa(len(s.refunds)), Status: "succeeded"}, nil
}

// SetRefundError makes subsequent refunds fail with err (nil restores success).
func (s *StubGateway) SetRefundError(err error) {
	s.mu.Lock()
	s.refundErr = err
	s.mu.Unlock()
}

// Refunds returns the distinct refunds accepted so far.
func (s *StubGateway) Refunds() []RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RefundRequest(nil), s.refunds...)
}

// RefundCalls counts every Refund invocation, failed ones included.
func (s *StubGateway) RefundCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
