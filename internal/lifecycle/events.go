package lifecycle

import (
	"context"
	"log"

	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/pkg/payment"
)

type EventOutcome string

const (
	OutcomeApplied   EventOutcome = "applied"
	OutcomeDuplicate EventOutcome = "duplicate"
	OutcomeIgnored   EventOutcome = "ignored"
)

// HandlePaymentEvent applies an authenticated gateway event. The key
// question_id:kind (plus the session id for expired and failed checkouts) is
// recorded before any side effect; a redelivery of a processed key returns
// OutcomeDuplicate without touching the question.
func (e *Engine) HandlePaymentEvent(ctx context.Context, ev *payment.Event) (EventOutcome, error) {
	abandon := ev.Kind == payment.EventExpired || ev.Kind == payment.EventFailed
	key := models.PaymentEventKey(ev.QuestionID, ev.Kind)
	if abandon && ev.CheckoutSessionID != "" {
		key = models.SessionEventKey(ev.QuestionID, ev.Kind, ev.CheckoutSessionID)
	}
	rec := &models.PaymentEvent{
		Provider:        ev.Provider,
		IdempotencyKey:  key,
		ProviderEventID: ev.ID,
		QuestionID:      ev.QuestionID,
		Kind:            ev.Kind,
		PayloadJSON:     string(ev.Payload),
		SignatureValid:  true,
	}
	created, stored, err := e.events.CreateIfNotExists(ctx, rec)
	if err != nil {
		return "", err
	}
	if !created && stored.ProcessedAt != nil {
		log.Printf("[Webhook] duplicate %s for question=%d (event %s)", ev.Kind, ev.QuestionID, ev.ID)
		return OutcomeDuplicate, nil
	}

	var applied bool
	switch {
	case ev.Kind == payment.EventCompleted:
		applied, err = e.ConfirmPayment(ctx, ev.QuestionID, ev.PaymentIntentID)
	case abandon:
		applied, err = e.AbandonCheckout(ctx, ev.QuestionID, ev.CheckoutSessionID)
	default:
		err = domain.NewValidationError("type", "unknown payment event kind "+ev.Kind)
	}
	if mErr := e.events.MarkProcessed(ctx, stored.ID, err, e.now()); mErr != nil {
		log.Printf("[Webhook] mark event %d processed: %v", stored.ID, mErr)
	}
	if err != nil {
		return "", err
	}
	if applied {
		return OutcomeApplied, nil
	}
	return OutcomeIgnored, nil
}

// ConfirmPayment activates an unpaid question and starts its SLA clock. A
// question removed by an abandoned checkout is restored first, since the
// money has been captured. Unknown or already-paid questions are ignored.
func (e *Engine) ConfirmPayment(ctx context.Context, questionID uint, paymentIntentID string) (bool, error) {
	q, err := e.loadQuestion(ctx, questionID)
	if domain.IsNotFound(err) {
		restored, rErr := e.questions.RestoreUnpaid(ctx, questionID)
		if rErr != nil {
			return false, rErr
		}
		if !restored {
			log.Printf("[Lifecycle] payment confirmed for unknown question=%d intent=%s", questionID, paymentIntentID)
			return false, nil
		}
		log.Printf("[Lifecycle] question=%d restored after abandoned checkout, intent=%s", questionID, paymentIntentID)
		q, err = e.loadQuestion(ctx, questionID)
	}
	if err != nil {
		return false, err
	}
	if q.Paid {
		if q.PaymentIntentID != paymentIntentID {
			log.Printf("[Lifecycle] question=%d already paid by %s, got second intent %s", q.ID, q.PaymentIntentID, paymentIntentID)
		}
		return false, nil
	}

	now := e.now()
	due := DueAt(q, now)
	applied, err := e.questions.MarkPaid(ctx, q.ID, paymentIntentID, now, due)
	if err != nil || !applied {
		return false, err
	}
	q.Status = domain.QuestionStatusPending
	q.Paid = true
	q.PaymentIntentID = paymentIntentID
	q.PaidAt = &now
	q.DueAt = &due
	log.Printf("[Lifecycle] question=%d paid intent=%s due=%s", q.ID, paymentIntentID, due.Format("2006-01-02T15:04:05Z07:00"))

	e.invalidate(ctx, q.AnswererID)
	e.notify("assigned", q.ID, func() error { return e.notifier.QuestionAssigned(ctx, q) })
	return true, nil
}

// AbandonCheckout removes a question whose checkout expired or failed while
// it was still unpaid. A question that was paid in the meantime stays, and so
// does one whose current session is not sessionID.
func (e *Engine) AbandonCheckout(ctx context.Context, questionID uint, sessionID string) (bool, error) {
	deleted, err := e.questions.SoftDeleteUnpaid(ctx, questionID, sessionID)
	if err != nil {
		return false, err
	}
	if deleted {
		log.Printf("[Lifecycle] question=%d removed after abandoned checkout %s", questionID, sessionID)
	} else {
		log.Printf("[Lifecycle] abandoned checkout %s ignored for question=%d (not unpaid or superseded)", sessionID, questionID)
	}
	return deleted, nil
}
