package repository

import (
	"context"
	"time"

	"qabackend/internal/models"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) GetByID(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AnswerRepository) GetByQuestionID(ctx context.Context, questionID uint) (*models.Answer, error) {
	var a models.Answer
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AnswerRepository) CountByQuestion(ctx context.Context, questionID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Answer{}).Where("question_id = ?", questionID).Count(&n).Error
	return n, err
}

// SetReview stores a rating once. Returns false if the answer was already reviewed.
func (r *AnswerRepository) SetReview(ctx context.Context, id uint, rate int, review string, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("id = ? AND reviewed_at IS NULL", id).
		Updates(map[string]interface{}{
			"rate":        rate,
			"review":      review,
			"reviewed_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

type RatingSummary struct {
	Average float64
	Count   int64
}

func (r *AnswerRepository) RatingForAnswerer(ctx context.Context, answererID uint) (RatingSummary, error) {
	var s RatingSummary
	err := r.db.WithContext(ctx).Model(&models.Answer{}).
		Select("COALESCE(AVG(rate), 0) AS average, COUNT(rate) AS count").
		Where("answerer_id = ? AND rate IS NOT NULL", answererID).
		Scan(&s).Error
	return s, err
}

func (r *AnswerRepository) CountSince(ctx context.Context, answererID uint, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("answerer_id = ? AND created_at >= ?", answererID, since).
		Count(&n).Error
	return n, err
}
