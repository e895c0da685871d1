package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const StripeSignatureHeader = "Stripe-Signature"

const metaQuestionID = "question_id"

// StripeGateway runs question checkout on Stripe Checkout and refunds the
// payment intent when a question expires.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

// NewStripeGateway. backends may be nil to talk to the live Stripe API.
func NewStripeGateway(secretKey, webhookSecret string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{sc: client.New(secretKey, backends), webhookSecret: webhookSecret}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	qid := strconv.FormatUint(uint64(req.QuestionID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(qid),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metaQuestionID: qid},
		},
	}
	params.Context = ctx
	params.AddMetadata(metaQuestionID, qid)
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL, ExpiresAt: time.Unix(s.ExpiresAt, 0)}, nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var kind string
	switch string(ev.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		kind = EventCompleted
	case "checkout.session.expired":
		kind = EventExpired
	case "checkout.session.async_payment_failed":
		kind = EventFailed
	default:
		return nil, ErrUnhandledEvent
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	// Delayed methods complete the session before the money arrives; the
	// async_payment_succeeded event confirms those later.
	if kind == EventCompleted && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return nil, ErrUnhandledEvent
	}

	ref := s.Metadata[metaQuestionID]
	if ref == "" {
		ref = s.ClientReferenceID
	}
	qid, err := strconv.ParseUint(ref, 10, 64)
	if err != nil || qid == 0 {
		return nil, fmt.Errorf("stripe event %s: missing question reference", ev.ID)
	}
	out := &Event{
		ID:                ev.ID,
		Provider:          g.Name(),
		Kind:              kind,
		QuestionID:        uint(qid),
		CheckoutSessionID: s.ID,
		Payload:           payload,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.AddMetadata(metaQuestionID, strconv.FormatUint(uint64(req.QuestionID), 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	r, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return nil, fmt.Errorf("stripe refund %s: status %s", r.ID, r.Status)
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status)}, nil
}
