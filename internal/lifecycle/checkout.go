package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/pkg/payment"
)

type CreateQuestionInput struct {
	QuestionerID   uint     `json:"questioner_id" validate:"required"`
	AnswererID     uint     `json:"answerer_id" validate:"required"`
	QuestionTypeID uint     `json:"question_type_id" validate:"required"`
	Body           string   `json:"question" validate:"required,max=5000"`
	Choices        []string `json:"choices" validate:"omitempty,dive,required,max=500"`
	Pictures       []string `json:"pictures" validate:"omitempty,dive,url"`
}

// CreateQuestion stores a NOT_PAID question with the type's price, currency
// and response window copied onto it.
func (e *Engine) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*models.Question, error) {
	if err := e.validateInput(in); err != nil {
		return nil, err
	}
	if in.QuestionerID == in.AnswererID {
		return nil, domain.NewValidationError("answerer_id", "cannot ask yourself")
	}
	qt, err := e.types.GetByID(ctx, in.QuestionTypeID)
	if err != nil {
		return nil, notFound(err, "question type", in.QuestionTypeID)
	}
	if !qt.Enabled {
		return nil, domain.NewValidationError("question_type_id", "question type is disabled")
	}
	if qt.AnswererID != in.AnswererID {
		return nil, domain.NewValidationError("question_type_id", "question type does not belong to this answerer")
	}
	if err := checkContent(qt, in); err != nil {
		return nil, err
	}

	q := &models.Question{
		QuestionTypeID:    qt.ID,
		QuestionerID:      in.QuestionerID,
		AnswererID:        in.AnswererID,
		Body:              in.Body,
		Status:            domain.QuestionStatusNotPaid,
		PriceCents:        qt.PriceCents,
		Currency:          qt.Currency,
		ResponseTimeHours: qt.ResponseTimeHours,
		DeadlineAnchor:    e.cfg.DeadlineAnchor,
		CreatedAt:         e.now(),
	}
	if q.Currency == "" {
		q.Currency = domain.DefaultCurrency
	}
	if q.ResponseTimeHours <= 0 {
		q.ResponseTimeHours = domain.DefaultResponseTimeHours
	}
	if q.Choices, err = encodeList(in.Choices); err != nil {
		return nil, err
	}
	if q.Pictures, err = encodeList(in.Pictures); err != nil {
		return nil, err
	}
	if err := e.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	log.Printf("[Lifecycle] question=%d created type=%d price=%d %s window=%dh anchor=%s",
		q.ID, qt.ID, q.PriceCents, q.Currency, q.ResponseTimeHours, q.DeadlineAnchor)
	return q, nil
}

func checkContent(qt *models.QuestionType, in CreateQuestionInput) error {
	switch qt.Kind {
	case domain.QuestionKindMultipleChoice:
		limit := qt.NumberOfChoiceOptions
		if len(in.Choices) < 2 || (limit > 0 && len(in.Choices) > limit) {
			return domain.NewValidationError("choices", fmt.Sprintf("between 2 and %d choices required", limit))
		}
	case domain.QuestionKindPicture:
		limit := qt.NumberOfPictureOptions
		if len(in.Pictures) == 0 || (limit > 0 && len(in.Pictures) > limit) {
			return domain.NewValidationError("pictures", fmt.Sprintf("between 1 and %d pictures required", limit))
		}
	}
	return nil
}

func encodeList(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// checkoutReuseMargin keeps a nearly expired session from being handed out.
const checkoutReuseMargin = 5 * time.Minute

// StartCheckout opens a gateway checkout for the question's snapshotted price.
// A session that is still open is returned again instead of opening a second
// one the questioner could also pay.
func (e *Engine) StartCheckout(ctx context.Context, questionID, questionerID uint) (*payment.CheckoutSession, error) {
	q, err := e.loadQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q.QuestionerID != questionerID {
		return nil, domain.NewAuthorizationError("not your question")
	}
	if q.Paid || q.Status != domain.QuestionStatusNotPaid {
		return nil, domain.NewConflict(q.ID, domain.ConflictNotPayable, q.Status)
	}
	now := e.now()
	if open := openSession(q, now); open != nil {
		log.Printf("[Lifecycle] checkout question=%d reusing session %s", q.ID, open.ID)
		return open, nil
	}

	redirect := e.cfg.ClientOrigin + "/questioner/my-questions"
	session, err := e.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		QuestionID:   q.ID,
		QuestionerID: q.QuestionerID,
		AmountCents:  q.PriceCents,
		Currency:     q.Currency,
		Description:  "Ask a Question",
		SuccessURL:   redirect + "?payment=success",
		CancelURL:    redirect + "?payment=cancel",
		ExpiresAt:    now.Add(e.cfg.CheckoutTTL),
	})
	if err != nil {
		log.Printf("[Lifecycle] checkout question=%d: %v", q.ID, err)
		return nil, domain.NewUpstreamError("checkout", err)
	}
	if err := e.questions.SetCheckoutSession(ctx, q.ID, session.ID, session.URL, session.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrGuardFailed) {
			return nil, domain.NewConflict(q.ID, domain.ConflictNotPayable, domain.QuestionStatusPending)
		}
		return nil, err
	}
	return session, nil
}

func openSession(q *models.Question, now time.Time) *payment.CheckoutSession {
	if q.CheckoutSessionID == "" || q.CheckoutURL == "" || q.CheckoutExpiresAt == nil {
		return nil
	}
	if !now.Add(checkoutReuseMargin).Before(*q.CheckoutExpiresAt) {
		return nil
	}
	return &payment.CheckoutSession{ID: q.CheckoutSessionID, URL: q.CheckoutURL, ExpiresAt: *q.CheckoutExpiresAt}
}
