package repository

import (
	"context"
	"errors"

	"qabackend/internal/domain"
	"qabackend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance = errors.New("insufficient earnings balance")
	ErrInvalidAmount       = errors.New("withdrawal amount must be positive")
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// CreateIfAffordable inserts w when the answerer's earnings cover it after
// subtracting pending and completed withdrawals. The answerer row is locked so
// concurrent requests cannot overdraw.
func (r *WithdrawalRepository) CreateIfAffordable(ctx context.Context, w *models.Withdrawal) error {
	if w.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, w.AnswererID).Error; err != nil {
			return err
		}
		available, err := available(tx, w.AnswererID)
		if err != nil {
			return err
		}
		if available < w.AmountCents {
			return ErrInsufficientBalance
		}
		return tx.Create(w).Error
	})
}

// Available is total earnings minus pending and completed withdrawals.
func (r *WithdrawalRepository) Available(ctx context.Context, answererID uint) (int64, error) {
	return available(r.db.WithContext(ctx), answererID)
}

func available(db *gorm.DB, answererID uint) (int64, error) {
	var earned, committed int64
	if err := db.Model(&models.Earning{}).Select("COALESCE(SUM(amount_cents), 0)").
		Where("answerer_id = ?", answererID).Scan(&earned).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&models.Withdrawal{}).Select("COALESCE(SUM(amount_cents), 0)").
		Where("answerer_id = ? AND status IN ?", answererID, []string{domain.WithdrawalStatusPending, domain.WithdrawalStatusCompleted}).
		Scan(&committed).Error; err != nil {
		return 0, err
	}
	return earned - committed, nil
}

func (r *WithdrawalRepository) GetByOrderID(orderID string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.db.Where("order_id = ?", orderID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) ListByAnswerer(answererID uint, limit, offset int) ([]models.Withdrawal, error) {
	var list []models.Withdrawal
	err := r.db.Where("answerer_id = ?", answererID).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *WithdrawalRepository) Update(w *models.Withdrawal) error {
	return r.db.Save(w).Error
}
