package repository

import (
	"context"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"

	"gorm.io/gorm"
)

type RefundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) GetByQuestionID(ctx context.Context, questionID uint) (*models.Refund, error) {
	var ref models.Refund
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListRetryable returns failed refunds under maxAttempts plus pending refunds
// whose last attempt started before staleBefore (a crash between commit and
// gateway call).
func (r *RefundRepository) ListRetryable(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]models.Refund, error) {
	var list []models.Refund
	err := r.db.WithContext(ctx).
		Where("(status = ? AND attempts < ?) OR (status = ? AND last_attempt_at < ?)",
			domain.RefundStatusFailed, maxAttempts, domain.RefundStatusPending, staleBefore).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Claim takes the next attempt on a refund. It only succeeds if nobody else
// claimed or finished it since ref was read.
func (r *RefundRepository) Claim(ctx context.Context, ref *models.Refund, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND attempts = ? AND status <> ?", ref.ID, ref.Attempts, domain.RefundStatusSucceeded).
		Updates(map[string]interface{}{
			"status":          domain.RefundStatusPending,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 1 {
		ref.Attempts++
		ref.Status = domain.RefundStatusPending
		ref.LastAttemptAt = &now
		return true, nil
	}
	return false, nil
}

func (r *RefundRepository) MarkSucceeded(ctx context.Context, id uint, providerRefundID string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Refund{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             domain.RefundStatusSucceeded,
			"provider_refund_id": providerRefundID,
			"last_error":         "",
			"completed_at":       now,
		}).Error
}

func (r *RefundRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Refund{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.RefundStatusFailed,
			"last_error": reason,
		}).Error
}

func (r *RefundRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Refund{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
