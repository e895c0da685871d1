package repository

import (
	"context"

	"qabackend/internal/models"

	"gorm.io/gorm"
)

type QuestionTypeRepository struct {
	db *gorm.DB
}

func NewQuestionTypeRepository(db *gorm.DB) *QuestionTypeRepository {
	return &QuestionTypeRepository{db: db}
}

func (r *QuestionTypeRepository) Create(ctx context.Context, t *models.QuestionType) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *QuestionTypeRepository) GetByID(ctx context.Context, id uint) (*models.QuestionType, error) {
	var t models.QuestionType
	err := r.db.WithContext(ctx).First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *QuestionTypeRepository) ListByAnswerer(ctx context.Context, answererID uint, enabledOnly bool) ([]models.QuestionType, error) {
	var list []models.QuestionType
	q := r.db.WithContext(ctx).Where("answerer_id = ?", answererID)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	err := q.Order("id ASC").Find(&list).Error
	return list, err
}

// Update saves type changes. Questions already created keep their own
// snapshot of price and response time.
func (r *QuestionTypeRepository) Update(ctx context.Context, t *models.QuestionType) error {
	return r.db.WithContext(ctx).Save(t).Error
}
