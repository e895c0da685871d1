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
)

type SubmitAnswerInput struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	AnswererID uint   `json:"answerer_id" validate:"required"`
	Body       string `json:"answer" validate:"required,max=10000"`
}

// SubmitAnswer accepts an answer from the assigned answerer while the
// question is PENDING and its deadline has not passed. A late submission
// expires the question on the spot and fails with a question_expired
// conflict.
func (e *Engine) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (*models.Answer, error) {
	if err := e.validateInput(in); err != nil {
		return nil, err
	}
	q, err := e.loadQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if q.AnswererID != in.AnswererID {
		return nil, domain.NewAuthorizationError("question is assigned to another answerer")
	}
	now := e.now()
	if q.Status != domain.QuestionStatusPending {
		return nil, conflictFor(q, now)
	}
	if Overdue(q, now) {
		return nil, e.expireLate(ctx, q, now)
	}

	a := &models.Answer{
		QuestionID: q.ID,
		AnswererID: in.AnswererID,
		Body:       in.Body,
		CreatedAt:  now,
	}
	earning := &models.Earning{
		AnswererID:  q.AnswererID,
		AmountCents: e.earningAmount(q.PriceCents),
		Currency:    q.Currency,
		CreatedAt:   now,
	}
	if err := e.questions.AcceptAnswer(ctx, a, earning, now); err != nil {
		if !errors.Is(err, repository.ErrGuardFailed) {
			return nil, fmt.Errorf("accept answer: %w", err)
		}
		current, rerr := e.loadQuestion(ctx, q.ID)
		if rerr != nil {
			return nil, rerr
		}
		if current.Status == domain.QuestionStatusPending && Overdue(current, now) {
			return nil, e.expireLate(ctx, current, now)
		}
		return nil, conflictFor(current, now)
	}

	q.Status = domain.QuestionStatusAnswered
	q.AnsweredAt = &now
	log.Printf("[Lifecycle] question=%d answered by %d earning=%d %s", q.ID, a.AnswererID, earning.AmountCents, earning.Currency)

	e.invalidate(ctx, q.AnswererID)
	e.notify("answered", q.ID, func() error { return e.notifier.QuestionAnswered(ctx, q, a) })
	return a, nil
}

// expireLate expires q for a submission that arrived after the deadline and
// returns the conflict to hand back to the caller.
func (e *Engine) expireLate(ctx context.Context, q *models.Question, now time.Time) error {
	if _, err := e.Expire(ctx, q, now); err != nil {
		var conflict *domain.StateConflictError
		if errors.As(err, &conflict) && conflict.Reason == domain.ConflictAnswered {
			return err
		}
		if !errors.As(err, &conflict) {
			log.Printf("[Lifecycle] opportunistic expiry question=%d: %v", q.ID, err)
		}
	}
	return domain.NewConflict(q.ID, domain.ConflictExpired, domain.QuestionStatusExpired)
}

type ReviewInput struct {
	AnswerID     uint   `json:"answer_id" validate:"required"`
	QuestionerID uint   `json:"questioner_id" validate:"required"`
	Rate         int    `json:"rate" validate:"required,min=1,max=5"`
	Review       string `json:"review" validate:"max=2000"`
}

// ReviewAnswer lets the questioner rate an answer once.
func (e *Engine) ReviewAnswer(ctx context.Context, in ReviewInput) (*models.Answer, error) {
	if err := e.validateInput(in); err != nil {
		return nil, err
	}
	a, err := e.answers.GetByID(ctx, in.AnswerID)
	if err != nil {
		return nil, notFound(err, "answer", in.AnswerID)
	}
	q, err := e.loadQuestion(ctx, a.QuestionID)
	if err != nil {
		return nil, err
	}
	if q.QuestionerID != in.QuestionerID {
		return nil, domain.NewAuthorizationError("only the questioner can review this answer")
	}
	now := e.now()
	ok, err := e.answers.SetReview(ctx, a.ID, in.Rate, in.Review, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflict(q.ID, domain.ConflictReviewed, q.Status)
	}
	rate := in.Rate
	a.Rate = &rate
	a.Review = in.Review
	a.ReviewedAt = &now

	e.invalidate(ctx, a.AnswererID)
	e.notify("reviewed", q.ID, func() error { return e.notifier.AnswerReviewed(ctx, q, a) })
	return a, nil
}
