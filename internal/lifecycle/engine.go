// Package lifecycle drives a paid question through
// NOT_PAID -> PENDING -> ANSWERED | EXPIRED.
//
// Every transition is one conditional UPDATE against the store; the loser
// of a race re-reads the row and reports a StateConflictError. Side effects
// (earning, refund, notifications) happen only for the caller whose update
// applied.
package lifecycle

import (
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"time"

	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/pkg/payment"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Notifier delivers lifecycle notifications. Failures are logged by the
// engine and never undo a committed transition.
type Notifier interface {
	QuestionAssigned(ctx context.Context, q *models.Question) error
	QuestionAnswered(ctx context.Context, q *models.Question, a *models.Answer) error
	QuestionExpired(ctx context.Context, q *models.Question, refundInitiated bool) error
	AnswerReviewed(ctx context.Context, q *models.Question, a *models.Answer) error
}

// StatsInvalidator drops cached answerer aggregates after a transition.
type StatsInvalidator interface {
	InvalidateAnswerer(ctx context.Context, answererID uint)
}

type Deps struct {
	Questions     *repository.QuestionRepository
	QuestionTypes *repository.QuestionTypeRepository
	Answers       *repository.AnswerRepository
	Refunds       *repository.RefundRepository
	PaymentEvents *repository.PaymentEventRepository
	Gateway       payment.Gateway
	Notifier      Notifier
	Stats         StatsInvalidator
	Now           func() time.Time
}

type Config struct {
	DeadlineAnchor    string
	PlatformFeeRate   float64
	ClientOrigin      string
	RefundMaxAttempts int
	// RefundStaleAfter is how long a PENDING refund may sit before a retry
	// assumes its attempt was lost.
	RefundStaleAfter time.Duration
	// CheckoutTTL is how long a gateway checkout session stays open.
	CheckoutTTL time.Duration
}

type Engine struct {
	questions *repository.QuestionRepository
	types     *repository.QuestionTypeRepository
	answers   *repository.AnswerRepository
	refunds   *repository.RefundRepository
	events    *repository.PaymentEventRepository
	gateway   payment.Gateway
	notifier  Notifier
	stats     StatsInvalidator
	now       func() time.Time
	validate  *validator.Validate
	cfg       Config
}

func New(d Deps, cfg Config) *Engine {
	if !ValidAnchor(cfg.DeadlineAnchor) {
		cfg.DeadlineAnchor = domain.DeadlineAnchorCreated
	}
	if cfg.RefundMaxAttempts <= 0 {
		cfg.RefundMaxAttempts = 5
	}
	if cfg.RefundStaleAfter <= 0 {
		cfg.RefundStaleAfter = 10 * time.Minute
	}
	if cfg.CheckoutTTL <= 0 {
		cfg.CheckoutTTL = time.Hour
	}
	if cfg.PlatformFeeRate < 0 || cfg.PlatformFeeRate >= 1 {
		log.Printf("[Lifecycle] ignoring platform fee rate %v", cfg.PlatformFeeRate)
		cfg.PlatformFeeRate = 0
	}
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Engine{
		questions: d.Questions,
		types:     d.QuestionTypes,
		answers:   d.Answers,
		refunds:   d.Refunds,
		events:    d.PaymentEvents,
		gateway:   d.Gateway,
		notifier:  d.Notifier,
		stats:     d.Stats,
		now:       now,
		validate:  v,
		cfg:       cfg,
	}
}

// Now is the engine clock (UTC).
func (e *Engine) Now() time.Time { return e.now() }

func (e *Engine) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	q, err := e.questions.GetWithAnswer(ctx, id)
	if err != nil {
		return nil, notFound(err, "question", id)
	}
	return q, nil
}

func (e *Engine) loadQuestion(ctx context.Context, id uint) (*models.Question, error) {
	q, err := e.questions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "question", id)
	}
	return q, nil
}

func notFound(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFound(resource, id)
	}
	return err
}

func (e *Engine) validateInput(in interface{}) error {
	err := e.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewValidationError(fe.Field(), "failed "+fe.Tag()+" validation")
	}
	return domain.NewValidationError("", err.Error())
}

// conflictFor explains why a transition on q did not apply.
func conflictFor(q *models.Question, now time.Time) error {
	switch q.Status {
	case domain.QuestionStatusAnswered:
		return domain.NewConflict(q.ID, domain.ConflictAnswered, q.Status)
	case domain.QuestionStatusExpired:
		return domain.NewConflict(q.ID, domain.ConflictExpired, q.Status)
	case domain.QuestionStatusPending:
		if Overdue(q, now) {
			return domain.NewConflict(q.ID, domain.ConflictExpired, q.Status)
		}
		return domain.NewConflict(q.ID, domain.ConflictNotDue, q.Status)
	default:
		return domain.NewConflict(q.ID, domain.ConflictNotPending, q.Status)
	}
}

func (e *Engine) invalidate(ctx context.Context, answererID uint) {
	if e.stats != nil {
		e.stats.InvalidateAnswerer(ctx, answererID)
	}
}

func (e *Engine) notify(kind string, questionID uint, send func() error) {
	if e.notifier == nil {
		return
	}
	if err := send(); err != nil {
		log.Printf("[Lifecycle] notify %s question=%d: %v", kind, questionID, err)
	}
}

// earningAmount is the answerer's share of the snapshotted price.
func (e *Engine) earningAmount(priceCents int64) int64 {
	if e.cfg.PlatformFeeRate == 0 {
		return priceCents
	}
	return int64(float64(priceCents)*(1-e.cfg.PlatformFeeRate) + 0.5)
}
