package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/pkg/payment"
)

// ItemError is one question's failure inside a batch operation.
type ItemError struct {
	QuestionID uint   `json:"question_id"`
	Error      string `json:"error"`
}

type ExpireResult struct {
	// Expired is true only for the caller whose update moved the question.
	Expired         bool
	RefundAttempted bool
	RefundSucceeded bool
}

// Expire moves an overdue PENDING question to EXPIRED and, when a payment
// intent is on record, refunds it. A refund failure is returned as an
// UpstreamError with Expired still true: the expiry stays committed and the
// refund row waits for RetryRefunds. A guard failure returns a
// StateConflictError and no side effects.
func (e *Engine) Expire(ctx context.Context, q *models.Question, now time.Time) (ExpireResult, error) {
	var res ExpireResult
	refund, err := e.questions.MarkExpired(ctx, q, now)
	if err != nil {
		if !errors.Is(err, repository.ErrGuardFailed) {
			return res, fmt.Errorf("expire question %d: %w", q.ID, err)
		}
		current, rerr := e.loadQuestion(ctx, q.ID)
		if rerr != nil {
			return res, rerr
		}
		return res, conflictFor(current, now)
	}
	res.Expired = true
	q.Status = domain.QuestionStatusExpired
	q.ExpiredAt = &now
	log.Printf("[Lifecycle] question=%d expired due=%v", q.ID, q.DueAt)

	// The expiry is committed; the refund must not be cut short by the
	// caller going away.
	ctx = context.WithoutCancel(ctx)

	var refundErr error
	if refund != nil {
		res.RefundAttempted = true
		refundErr = e.attemptRefund(ctx, refund)
		res.RefundSucceeded = refundErr == nil
	} else {
		log.Printf("[Refund] question=%d has no payment intent, nothing to refund", q.ID)
	}

	e.invalidate(ctx, q.AnswererID)
	e.notify("expired", q.ID, func() error { return e.notifier.QuestionExpired(ctx, q, res.RefundAttempted) })
	return res, refundErr
}

func (e *Engine) attemptRefund(ctx context.Context, ref *models.Refund) error {
	result, err := e.gateway.Refund(ctx, payment.RefundRequest{
		QuestionID:      ref.QuestionID,
		PaymentIntentID: ref.PaymentIntentID,
		AmountCents:     ref.AmountCents,
		Currency:        ref.Currency,
		IdempotencyKey:  ref.IdempotencyKey(),
	})
	if err != nil {
		log.Printf("[Refund] question=%d intent=%s attempt=%d failed: %v", ref.QuestionID, ref.PaymentIntentID, ref.Attempts, err)
		if mErr := e.refunds.MarkFailed(ctx, ref.ID, err.Error()); mErr != nil {
			log.Printf("[Refund] record failure for question=%d: %v", ref.QuestionID, mErr)
		}
		return domain.NewUpstreamError("refund", err)
	}
	if err := e.refunds.MarkSucceeded(ctx, ref.ID, result.ID, e.now()); err != nil {
		log.Printf("[Refund] record success for question=%d refund=%s: %v", ref.QuestionID, result.ID, err)
	}
	log.Printf("[Refund] question=%d refunded intent=%s refund=%s status=%s", ref.QuestionID, ref.PaymentIntentID, result.ID, result.Status)
	return nil
}

type RetryReport struct {
	Scanned   int         `json:"scanned"`
	Succeeded int         `json:"succeeded"`
	Skipped   int         `json:"skipped"`
	Failures  []ItemError `json:"failures"`
}

// RetryRefunds re-attempts failed refunds and refunds whose attempt was
// lost. Each retry reuses the refund's idempotency key so the gateway never
// pays twice.
func (e *Engine) RetryRefunds(ctx context.Context, limit int) (RetryReport, error) {
	report := RetryReport{Failures: []ItemError{}}
	if limit <= 0 {
		limit = 100
	}
	now := e.now()
	list, err := e.refunds.ListRetryable(ctx, e.cfg.RefundMaxAttempts, now.Add(-e.cfg.RefundStaleAfter), limit)
	if err != nil {
		return report, fmt.Errorf("list retryable refunds: %w", err)
	}
	for i := range list {
		ref := &list[i]
		report.Scanned++
		claimed, err := e.refunds.Claim(ctx, ref, now)
		if err != nil {
			report.Failures = append(report.Failures, ItemError{QuestionID: ref.QuestionID, Error: err.Error()})
			continue
		}
		if !claimed {
			report.Skipped++
			continue
		}
		if err := e.attemptRefund(context.WithoutCancel(ctx), ref); err != nil {
			report.Failures = append(report.Failures, ItemError{QuestionID: ref.QuestionID, Error: err.Error()})
			continue
		}
		report.Succeeded++
	}
	if report.Scanned > 0 {
		log.Printf("[Refund] retry scanned=%d succeeded=%d skipped=%d failed=%d",
			report.Scanned, report.Succeeded, report.Skipped, len(report.Failures))
	}
	return report, nil
}
