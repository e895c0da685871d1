package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"qabackend/internal/repository"
	"qabackend/pkg/cache"
)

const statsTTL = 2 * time.Minute

// AnswererStats is the dashboard summary for one answerer. Today means the
// current UTC calendar day.
type AnswererStats struct {
	AnswererID         uint      `json:"answerer_id"`
	PendingCount       int64     `json:"pending_count"`
	AnsweredCount      int64     `json:"answered_count"`
	ExpiredCount       int64     `json:"expired_count"`
	AnswersToday       int64     `json:"answers_today"`
	EarningsTodayCents int64     `json:"earnings_today_cents"`
	TotalEarningsCents int64     `json:"total_earnings_cents"`
	ResponseRate       float64   `json:"response_rate"` // answered / (answered + expired), 0 with no history
	AverageRating      float64   `json:"average_rating"`
	RatingCount        int64     `json:"rating_count"`
	ComputedAt         time.Time `json:"computed_at"`
}

// StatsService computes answerer aggregates on read and caches them in Redis.
// It implements lifecycle.StatsInvalidator.
type StatsService struct {
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
	earnings  *repository.EarningRepository
	cache     *cache.Cache
	now       func() time.Time
}

func NewStatsService(questions *repository.QuestionRepository, answers *repository.AnswerRepository, earnings *repository.EarningRepository, c *cache.Cache, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{questions: questions, answers: answers, earnings: earnings, cache: c, now: now}
}

func statsKey(answererID uint) string {
	return fmt.Sprintf("qa:stats:answerer:%d", answererID)
}

func (s *StatsService) ForAnswerer(ctx context.Context, answererID uint) (*AnswererStats, error) {
	var cached AnswererStats
	if hit, err := s.cache.GetJSON(ctx, statsKey(answererID), &cached); err != nil {
		log.Printf("[Cache] stats get %d: %v", answererID, err)
	} else if hit {
		return &cached, nil
	}

	st, err := s.compute(ctx, answererID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, statsKey(answererID), st, statsTTL); err != nil {
		log.Printf("[Cache] stats set %d: %v", answererID, err)
	}
	return st, nil
}

func (s *StatsService) compute(ctx context.Context, answererID uint) (*AnswererStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts, err := s.questions.CountByStatusForAnswerer(ctx, answererID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	answersToday, err := s.answers.CountSince(ctx, answererID, today)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	earnedToday, err := s.earnings.SumSince(ctx, answererID, today)
	if err != nil {
		return nil, fmt.Errorf("sum earnings today: %w", err)
	}
	earnedTotal, err := s.earnings.SumByAnswerer(ctx, answererID)
	if err != nil {
		return nil, fmt.Errorf("sum earnings: %w", err)
	}
	rating, err := s.answers.RatingForAnswerer(ctx, answererID)
	if err != nil {
		return nil, fmt.Errorf("rating: %w", err)
	}

	st := &AnswererStats{
		AnswererID:         answererID,
		PendingCount:       counts.Pending,
		AnsweredCount:      counts.Answered,
		ExpiredCount:       counts.Expired,
		AnswersToday:       answersToday,
		EarningsTodayCents: earnedToday,
		TotalEarningsCents: earnedTotal,
		AverageRating:      math.Round(rating.Average*100) / 100,
		RatingCount:        rating.Count,
		ComputedAt:         now,
	}
	if resolved := counts.Answered + counts.Expired; resolved > 0 {
		st.ResponseRate = math.Round(float64(counts.Answered)/float64(resolved)*10000) / 10000
	}
	return st, nil
}

func (s *StatsService) InvalidateAnswerer(ctx context.Context, answererID uint) {
	if err := s.cache.Delete(ctx, statsKey(answererID)); err != nil {
		log.Printf("[Cache] stats invalidate %d: %v", answererID, err)
	}
}
