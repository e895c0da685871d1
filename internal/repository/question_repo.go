package repository

import (
	"context"
	"errors"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"

	"gorm.io/gorm"
)

// ErrGuardFailed means a conditional transition matched no row: another
// writer moved the question first, or its deadline no longer allows it.
var ErrGuardFailed = errors.New("question transition guard failed")

const noAnswerYet = "NOT EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id)"

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *QuestionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) GetWithAnswer(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).Preload("Answer").First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// SetCheckoutSession stores the gateway session on a question that is still
// unpaid. The newest session replaces any earlier one.
func (r *QuestionRepository) SetCheckoutSession(ctx context.Context, id uint, sessionID, url string, expiresAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ? AND status = ? AND paid = ?", id, domain.QuestionStatusNotPaid, false).
		Updates(map[string]interface{}{
			"checkout_session_id": sessionID,
			"checkout_url":        url,
			"checkout_expires_at": expiresAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrGuardFailed
	}
	return nil
}

// MarkPaid moves NOT_PAID -> PENDING once. Returns false when the question was
// already paid, deleted or missing.
func (r *QuestionRepository) MarkPaid(ctx context.Context, id uint, paymentIntentID string, paidAt, dueAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ? AND status = ? AND paid = ?", id, domain.QuestionStatusNotPaid, false).
		Updates(map[string]interface{}{
			"status":            domain.QuestionStatusPending,
			"paid":              true,
			"payment_intent_id": paymentIntentID,
			"paid_at":           paidAt,
			"due_at":            dueAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// SoftDeleteUnpaid removes a question whose checkout expired or failed. A
// question that is already PENDING is left untouched. With a session id only
// the question's current session can remove it.
func (r *QuestionRepository) SoftDeleteUnpaid(ctx context.Context, id uint, sessionID string) (bool, error) {
	q := r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND paid = ?", id, domain.QuestionStatusNotPaid, false)
	if sessionID != "" {
		q = q.Where("checkout_session_id = ?", sessionID)
	}
	tx := q.Delete(&models.Question{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// RestoreUnpaid undoes SoftDeleteUnpaid for a question whose payment arrived
// after its checkout was abandoned.
func (r *QuestionRepository) RestoreUnpaid(ctx context.Context, id uint) (bool, error) {
	tx := r.db.WithContext(ctx).Unscoped().Model(&models.Question{}).
		Where("id = ? AND status = ? AND paid = ? AND deleted_at IS NOT NULL", id, domain.QuestionStatusNotPaid, false).
		Update("deleted_at", nil)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// AcceptAnswer commits PENDING -> ANSWERED together with the answer and the
// earning. The status update is conditional on the deadline not having
// passed; ErrGuardFailed is returned when it matched nothing.
func (r *QuestionRepository) AcceptAnswer(ctx context.Context, a *models.Answer, e *models.Earning, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).
			Where("id = ? AND status = ? AND paid = ? AND due_at >= ?", a.QuestionID, domain.QuestionStatusPending, true, now).
			Where(noAnswerYet).
			Updates(map[string]interface{}{
				"status":      domain.QuestionStatusAnswered,
				"answered_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGuardFailed
		}
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		e.QuestionID = a.QuestionID
		return tx.Create(e).Error
	})
}

// MarkExpired moves PENDING -> EXPIRED for an overdue, unanswered question.
// When the question carries a payment intent, the refund row is inserted in
// the same transaction with its first attempt claimed, so only the caller
// that won the transition ever starts a refund. The returned refund is nil
// when there is nothing to refund.
func (r *QuestionRepository) MarkExpired(ctx context.Context, q *models.Question, now time.Time) (*models.Refund, error) {
	var refund *models.Refund
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).
			Where("id = ? AND status = ? AND paid = ? AND due_at < ?", q.ID, domain.QuestionStatusPending, true, now).
			Where(noAnswerYet).
			Updates(map[string]interface{}{
				"status":     domain.QuestionStatusExpired,
				"expired_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGuardFailed
		}
		if q.PaymentIntentID == "" {
			return nil
		}
		refund = &models.Refund{
			QuestionID:      q.ID,
			PaymentIntentID: q.PaymentIntentID,
			AmountCents:     q.PriceCents,
			Currency:        q.Currency,
			Status:          domain.RefundStatusPending,
			Attempts:        1,
			LastAttemptAt:   &now,
		}
		return tx.Create(refund).Error
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// ListOverdue returns sweep candidates with id > afterID in id order.
func (r *QuestionRepository) ListOverdue(ctx context.Context, now time.Time, afterID uint, limit int) ([]models.Question, error) {
	var list []models.Question
	err := r.db.WithContext(ctx).
		Where("status = ? AND paid = ? AND due_at < ? AND id > ?", domain.QuestionStatusPending, true, now, afterID).
		Where(noAnswerYet).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ListByQuestioner returns questions asked by questionerID, newest first.
func (r *QuestionRepository) ListByQuestioner(ctx context.Context, questionerID uint, status string, limit, offset int) ([]models.Question, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Question{}).Where("questioner_id = ?", questionerID)
	return r.page(q, status, limit, offset)
}

// ListByAnswerer returns paid questions addressed to answererID, newest first.
func (r *QuestionRepository) ListByAnswerer(ctx context.Context, answererID uint, status string, limit, offset int) ([]models.Question, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("answerer_id = ? AND paid = ?", answererID, true)
	return r.page(q, status, limit, offset)
}

func (r *QuestionRepository) page(q *gorm.DB, status string, limit, offset int) ([]models.Question, int64, error) {
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Question
	err := q.Preload("Answer").Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// AnswererCounts is the per-status breakdown of paid questions for one answerer.
type AnswererCounts struct {
	Pending  int64
	Answered int64
	Expired  int64
}

func (r *QuestionRepository) CountByStatusForAnswerer(ctx context.Context, answererID uint) (AnswererCounts, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&models.Question{}).
		Select("status, COUNT(*) AS n").
		Where("answerer_id = ? AND paid = ?", answererID, true).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return AnswererCounts{}, err
	}
	var c AnswererCounts
	for _, row := range rows {
		switch row.Status {
		case domain.QuestionStatusPending:
			c.Pending = row.N
		case domain.QuestionStatusAnswered:
			c.Answered = row.N
		case domain.QuestionStatusExpired:
			c.Expired = row.N
		}
	}
	return c, nil
}
