package repository

import (
	"context"
	"time"

	"qabackend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentEventRepository struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// CreateIfNotExists claims (provider, idempotency key). created is false when
// the key was already recorded; stored is always the persisted row.
func (r *PaymentEventRepository) CreateIfNotExists(ctx context.Context, ev *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "idempotency_key"},
		},
		DoNothing: true,
	}).Create(ev)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentEvent
	if err := r.db.WithContext(ctx).Where("provider = ? AND idempotency_key = ?", ev.Provider, ev.IdempotencyKey).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *PaymentEventRepository) MarkProcessed(ctx context.Context, id uint, processingErr error, now time.Time) error {
	updates := map[string]interface{}{"processing_error": ""}
	if processingErr != nil {
		updates["processing_error"] = processingErr.Error()
	} else {
		updates["processed_at"] = now
	}
	return r.db.WithContext(ctx).Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *PaymentEventRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.PaymentEvent, error) {
	var list []models.PaymentEvent
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).Order("id ASC").Find(&list).Error
	return list, err
}
