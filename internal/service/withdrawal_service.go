package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/pkg/payment"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone returns a 2547XXXXXXXX style MSISDN, or "" if s cannot be one.
func NormalizePhone(s string) string {
	s = nonDigits.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(s, "0"):
		s = "254" + s[1:]
	case !strings.HasPrefix(s, "254"):
		s = "254" + s
	}
	if len(s) != 12 {
		return ""
	}
	return s
}

// WithdrawalService pays answerer earnings out over M-Pesa B2C. The balance is
// derived from the earnings ledger, so a FAILED withdrawal releases its amount
// without a compensating write.
type WithdrawalService struct {
	repo     *repository.WithdrawalRepository
	payout   payment.PayoutProvider
	currency string
	now      func() time.Time
}

func NewWithdrawalService(repo *repository.WithdrawalRepository, payout payment.PayoutProvider, currency string) *WithdrawalService {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &WithdrawalService{repo: repo, payout: payout, currency: currency, now: time.Now}
}

type WithdrawalRequest struct {
	AnswererID  uint
	Amount      int64 // whole currency units
	PhoneNumber string
}

// maxWithdrawalAmount keeps the conversion to cents inside int64.
const maxWithdrawalAmount = math.MaxInt64 / 100

// Request reserves the amount as a PENDING withdrawal, then asks the payout
// provider to send it. A provider failure marks the withdrawal FAILED.
func (s *WithdrawalService) Request(ctx context.Context, req WithdrawalRequest) (*models.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if req.Amount > maxWithdrawalAmount {
		return nil, domain.NewValidationError("amount", "too large")
	}
	phone := NormalizePhone(req.PhoneNumber)
	if phone == "" {
		return nil, domain.NewValidationError("phone_number", "invalid phone number")
	}
	if s.payout == nil {
		return nil, domain.NewUpstreamError("payout", errors.New("payout provider not configured"))
	}

	w := &models.Withdrawal{
		AnswererID:  req.AnswererID,
		OrderID:     "wd-" + uuid.NewString(),
		AmountCents: req.Amount * 100,
		Currency:    s.currency,
		PhoneNumber: phone,
		Status:      domain.WithdrawalStatusPending,
	}
	if err := s.repo.CreateIfAffordable(ctx, w); err != nil {
		if errors.Is(err, repository.ErrInvalidAmount) {
			return nil, domain.NewValidationError("amount", "must be positive")
		}
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, domain.NewValidationError("amount", "insufficient earnings balance")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound("answerer", req.AnswererID)
		}
		return nil, fmt.Errorf("reserve withdrawal: %w", err)
	}

	resp, err := s.payout.InitiateB2C(ctx, payment.B2CRequest{
		Amount:      req.Amount,
		PhoneNumber: phone,
		Description: "Answerer withdrawal",
		OrderID:     w.OrderID,
	})
	if err != nil {
		log.Printf("[Withdrawal] B2C init failed for %s: %v", w.OrderID, err)
		w.Status = domain.WithdrawalStatusFailed
		if uerr := s.repo.Update(w); uerr != nil {
			log.Printf("[Withdrawal] mark %s failed: %v", w.OrderID, uerr)
		}
		return nil, domain.NewUpstreamError("payout", err)
	}
	w.ProviderRef = resp.UUID
	if err := s.repo.Update(w); err != nil {
		log.Printf("[Withdrawal] store provider ref for %s: %v", w.OrderID, err)
	}
	return w, nil
}

// Settle applies a B2C callback. Unknown or already settled orders are
// ignored so provider retries are harmless.
func (s *WithdrawalService) Settle(orderID string, completed bool) (*models.Withdrawal, bool, error) {
	w, err := s.repo.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if w.Status != domain.WithdrawalStatusPending {
		return w, false, nil
	}
	if completed {
		now := s.now().UTC()
		w.Status = domain.WithdrawalStatusCompleted
		w.CompletedAt = &now
	} else {
		w.Status = domain.WithdrawalStatusFailed
	}
	if err := s.repo.Update(w); err != nil {
		return nil, false, err
	}
	return w, true, nil
}

func (s *WithdrawalService) Available(ctx context.Context, answererID uint) (int64, error) {
	return s.repo.Available(ctx, answererID)
}

func (s *WithdrawalService) List(answererID uint, limit, offset int) ([]models.Withdrawal, error) {
	return s.repo.ListByAnswerer(answererID, limit, offset)
}
