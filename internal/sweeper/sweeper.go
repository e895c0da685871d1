// Package sweeper expires overdue PENDING questions in batches and refunds
// them through the lifecycle engine.
package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/lifecycle"
	"qabackend/internal/models"
	"qabackend/internal/repository"
)

const defaultBatchSize = 200

// Report summarizes one sweep. Per-question failures are collected here and
// never stop the sweep.
type Report struct {
	Now              time.Time             `json:"now"`
	Scanned          int                   `json:"scanned"`
	Expired          int                   `json:"expired"`
	AlreadyResolved  int                   `json:"already_resolved"`
	RefundsAttempted int                   `json:"refunds_attempted"`
	RefundFailures   []lifecycle.ItemError `json:"refund_failures"`
	Errors           []lifecycle.ItemError `json:"errors"`
	Duration         string                `json:"duration"`
}

// Expirer is the slice of the lifecycle engine a sweep drives.
type Expirer interface {
	Expire(ctx context.Context, q *models.Question, now time.Time) (lifecycle.ExpireResult, error)
}

type Sweeper struct {
	questions *repository.QuestionRepository
	expirer   Expirer
	batchSize int
}

func New(questions *repository.QuestionRepository, expirer Expirer, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Sweeper{questions: questions, expirer: expirer, batchSize: batchSize}
}

// Sweep expires every paid PENDING question whose deadline is before now and
// that has no answer. It is safe to run repeatedly and concurrently: each
// expiry is a conditional update, so a question expires and is refunded at
// most once however many sweeps see it.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) Report {
	started := time.Now()
	report := Report{
		Now:            now,
		RefundFailures: []lifecycle.ItemError{},
		Errors:         []lifecycle.ItemError{},
	}

	var afterID uint
	for {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, lifecycle.ItemError{Error: "sweep interrupted: " + err.Error()})
			break
		}
		batch, err := s.questions.ListOverdue(ctx, now, afterID, s.batchSize)
		if err != nil {
			log.Printf("[Sweeper] list overdue after id=%d: %v", afterID, err)
			report.Errors = append(report.Errors, lifecycle.ItemError{Error: "list overdue: " + err.Error()})
			break
		}
		for i := range batch {
			q := &batch[i]
			afterID = q.ID
			report.Scanned++
			s.expireOne(ctx, q, now, &report)
		}
		if len(batch) < s.batchSize {
			break
		}
	}

	report.Duration = time.Since(started).String()
	if report.Scanned > 0 || len(report.Errors) > 0 {
		log.Printf("[Sweeper] scanned=%d expired=%d already_resolved=%d refunds=%d refund_failures=%d errors=%d",
			report.Scanned, report.Expired, report.AlreadyResolved, report.RefundsAttempted,
			len(report.RefundFailures), len(report.Errors))
	}
	return report
}

func (s *Sweeper) expireOne(ctx context.Context, q *models.Question, now time.Time, report *Report) {
	res, err := s.expirer.Expire(ctx, q, now)
	if res.Expired {
		report.Expired++
	}
	if res.RefundAttempted {
		report.RefundsAttempted++
	}
	if err == nil {
		return
	}

	var conflict *domain.StateConflictError
	var upstream *domain.UpstreamError
	switch {
	case errors.As(err, &conflict):
		report.AlreadyResolved++
	case res.Expired && errors.As(err, &upstream):
		report.RefundFailures = append(report.RefundFailures, lifecycle.ItemError{QuestionID: q.ID, Error: err.Error()})
	default:
		log.Printf("[Sweeper] question=%d: %v", q.ID, err)
		report.Errors = append(report.Errors, lifecycle.ItemError{QuestionID: q.ID, Error: err.Error()})
	}
}
