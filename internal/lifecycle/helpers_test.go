package lifecycle

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"qabackend/internal/database"
	"qabackend/internal/domain"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/pkg/payment"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const (
	questionerID uint = 100
	answererID   uint = 200
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu       sync.Mutex
	assigned []uint
	answered []uint
	expired  []uint
	reviewed []uint
}

func (n *recordingNotifier) QuestionAssigned(_ context.Context, q *models.Question) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, q.ID)
	return nil
}

func (n *recordingNotifier) QuestionAnswered(_ context.Context, q *models.Question, _ *models.Answer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.answered = append(n.answered, q.ID)
	return nil
}

func (n *recordingNotifier) QuestionExpired(_ context.Context, q *models.Question, _ bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, q.ID)
	return nil
}

func (n *recordingNotifier) AnswerReviewed(_ context.Context, q *models.Question, _ *models.Answer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewed = append(n.reviewed, q.ID)
	return nil
}

func (n *recordingNotifier) count(list *[]uint) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(*list)
}

// recordingGateway captures checkout requests on top of the stub.
type recordingGateway struct {
	*payment.StubGateway
	mu        sync.Mutex
	checkouts []payment.CheckoutRequest
}

func (g *recordingGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	g.checkouts = append(g.checkouts, req)
	g.mu.Unlock()
	return g.StubGateway.CreateCheckout(ctx, req)
}

type testEnv struct {
	db    *gorm.DB
	eng   *Engine
	gw    *recordingGateway
	notif *recordingNotifier
	clock *fakeClock
	qtype *models.QuestionType
	repos repos
}

type repos struct {
	questions *repository.QuestionRepository
	types     *repository.QuestionTypeRepository
	answers   *repository.AnswerRepository
	earnings  *repository.EarningRepository
	refunds   *repository.RefundRepository
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	db := database.NewTestDB(t)
	require.NoError(t, db.Create(&[]models.User{
		{ID: questionerID, Email: "q@example.com", Role: domain.RoleQuestioner},
		{ID: answererID, Email: "a@example.com", Role: domain.RoleAnswerer},
	}).Error)

	r := repos{
		questions: repository.NewQuestionRepository(db),
		types:     repository.NewQuestionTypeRepository(db),
		answers:   repository.NewAnswerRepository(db),
		earnings:  repository.NewEarningRepository(db),
		refunds:   repository.NewRefundRepository(db),
	}
	qt := &models.QuestionType{
		AnswererID:        answererID,
		Kind:              domain.QuestionKindText,
		PriceCents:        1500,
		Currency:          "usd",
		ResponseTimeHours: 4,
		Enabled:           true,
	}
	require.NoError(t, r.types.Create(context.Background(), qt))

	clock := &fakeClock{t: t0}
	gw := &recordingGateway{StubGateway: payment.NewStubGateway("whsec", "")}
	notif := &recordingNotifier{}
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "https://app.example.com"
	}
	eng := New(Deps{
		Questions:     r.questions,
		QuestionTypes: r.types,
		Answers:       r.answers,
		Refunds:       r.refunds,
		PaymentEvents: repository.NewPaymentEventRepository(db),
		Gateway:       gw,
		Notifier:      notif,
		Now:           clock.Now,
	}, cfg)
	return &testEnv{db: db, eng: eng, gw: gw, notif: notif, clock: clock, qtype: qt, repos: r}
}

func (e *testEnv) create(t *testing.T, at time.Time) *models.Question {
	t.Helper()
	e.clock.Set(at)
	q, err := e.eng.CreateQuestion(context.Background(), CreateQuestionInput{
		QuestionerID:   questionerID,
		AnswererID:     answererID,
		QuestionTypeID: e.qtype.ID,
		Body:           "What is the blast radius of this migration?",
	})
	require.NoError(t, err)
	return q
}

func (e *testEnv) pay(t *testing.T, q *models.Question, at time.Time, intent string) EventOutcome {
	t.Helper()
	e.clock.Set(at)
	out, err := e.eng.HandlePaymentEvent(context.Background(), &payment.Event{
		ID:              "evt_" + intent,
		Provider:        "stub",
		Kind:            payment.EventCompleted,
		QuestionID:      q.ID,
		PaymentIntentID: intent,
	})
	require.NoError(t, err)
	return out
}

// createPaid creates a question at `at` and confirms payment five minutes later.
func (e *testEnv) createPaid(t *testing.T, at time.Time, intent string) *models.Question {
	t.Helper()
	q := e.create(t, at)
	require.Equal(t, OutcomeApplied, e.pay(t, q, at.Add(5*time.Minute), intent))
	return e.reload(t, q.ID)
}

func (e *testEnv) reload(t *testing.T, id uint) *models.Question {
	t.Helper()
	q, err := e.repos.questions.GetByID(context.Background(), id)
	require.NoError(t, err)
	return q
}

func (e *testEnv) answerCount(t *testing.T, id uint) int64 {
	t.Helper()
	n, err := e.repos.answers.CountByQuestion(context.Background(), id)
	require.NoError(t, err)
	return n
}

func (e *testEnv) earningsFor(t *testing.T, id uint) []models.Earning {
	t.Helper()
	list, err := e.repos.earnings.ListByQuestion(context.Background(), id)
	require.NoError(t, err)
	return list
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
