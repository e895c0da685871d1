package repository

import (
	"context"
	"time"

	"qabackend/internal/models"

	"gorm.io/gorm"
)

// EarningRepository reads the append-only earnings ledger. Rows are written
// only by QuestionRepository.AcceptAnswer.
type EarningRepository struct {
	db *gorm.DB
}

func NewEarningRepository(db *gorm.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

func (r *EarningRepository) ListByAnswerer(ctx context.Context, answererID uint, limit, offset int) ([]models.Earning, error) {
	var list []models.Earning
	err := r.db.WithContext(ctx).Where("answerer_id = ?", answererID).
		Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *EarningRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Earning, error) {
	var list []models.Earning
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).Find(&list).Error
	return list, err
}

func (r *EarningRepository) SumByAnswerer(ctx context.Context, answererID uint) (int64, error) {
	return r.sum(r.db.WithContext(ctx).Where("answerer_id = ?", answererID))
}

func (r *EarningRepository) SumSince(ctx context.Context, answererID uint, since time.Time) (int64, error) {
	return r.sum(r.db.WithContext(ctx).Where("answerer_id = ? AND created_at >= ?", answererID, since))
}

func (r *EarningRepository) sum(q *gorm.DB) (int64, error) {
	var total int64
	err := q.Model(&models.Earning{}).Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error
	return total, err
}
