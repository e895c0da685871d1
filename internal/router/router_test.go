package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"qabackend/config"
	"qabackend/internal/app"
	"qabackend/internal/auth"
	"qabackend/internal/database"
	"qabackend/internal/domain"
	"qabackend/internal/middleware"
	"qabackend/internal/models"
	"qabackend/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

var start = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakePayout struct{}

func (fakePayout) InitiateB2C(_ context.Context, req payment.B2CRequest) (*payment.B2CResponse, error) {
	return &payment.B2CResponse{UUID: "b2c-1", OrderID: req.OrderID, Status: "PENDING"}, nil
}

type fakePictures struct{ n int }

func (p *fakePictures) UploadPicture(_ context.Context, r io.Reader, _ uint) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	p.n++
	return fmt.Sprintf("https://img.example.com/q/%d.jpg", p.n), nil
}

type env struct {
	t          *testing.T
	r          *gin.Engine
	app        *app.App
	gw         *payment.StubGateway
	clock      *clock
	questioner *models.User
	answerer   *models.User
	textType   *models.QuestionType
}

func newEnv(t *testing.T, opts ...func(*config.Config)) *env {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Env: "test", ClientOrigin: "https://app.example.com"},
		JWT:     config.JWTConfig{AccessSecret: "router-secret", AccessExpiry: time.Hour, Issuer: "qa-backend"},
		Payment: config.PaymentConfig{Provider: "stub", WebhookSecret: "whsec", Currency: "usd"},
		SLA:     config.SLAConfig{DeadlineAnchor: domain.DeadlineAnchorCreated},
		Sweeper: config.SweeperConfig{
			Interval:          time.Hour,
			BatchSize:         50,
			RefundRetryEvery:  time.Minute,
			RefundMaxAttempts: 3,
			LockTTL:           time.Minute,
		},
		Maintenance: config.MaintenanceConfig{Token: "mtok"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	db := database.NewTestDB(t)
	gw := payment.NewStubGateway(cfg.Payment.WebhookSecret, "")
	clk := &clock{t: start}
	a, err := app.Build(context.Background(), cfg, db, app.Options{
		Gateway:         gw,
		SignatureHeader: payment.StubSignatureHeader,
		Payout:          fakePayout{},
		Pictures:        &fakePictures{},
		Now:             clk.Now,
	})
	require.NoError(t, err)

	e := &env{t: t, r: Setup(a), app: a, gw: gw, clock: clk}
	e.questioner = &models.User{Email: "asker@example.com", Role: domain.RoleQuestioner}
	e.answerer = &models.User{Email: "expert@example.com", Role: domain.RoleAnswerer}
	require.NoError(t, a.Repos.Users.Create(context.Background(), e.questioner))
	require.NoError(t, a.Repos.Users.Create(context.Background(), e.answerer))
	e.textType = &models.QuestionType{
		AnswererID:        e.answerer.ID,
		Kind:              domain.QuestionKindText,
		PriceCents:        1500,
		Currency:          "usd",
		ResponseTimeHours: 4,
		Enabled:           true,
	}
	require.NoError(t, a.Repos.QuestionTypes.Create(context.Background(), e.textType))
	return e
}

func (e *env) token(u *models.User) string {
	tok, err := auth.GenerateAccessToken(&e.app.Config.JWT, u.ID, u.Email, u.Role)
	require.NoError(e.t, err)
	return tok
}

func (e *env) do(method, path string, as *models.User, body interface{}, headers ...string) (int, map[string]interface{}) {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(as))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return e.serve(req)
}

func (e *env) serve(req *http.Request) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (e *env) createQuestion() uint {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/api/v1/questions", e.questioner, map[string]interface{}{
		"answerer_id":      e.answerer.ID,
		"question_type_id": e.textType.ID,
		"question":         "How should I shard this table?",
	})
	require.Equal(e.t, http.StatusCreated, code, body)
	q := body["question"].(map[string]interface{})
	return uint(q["id"].(float64))
}

func (e *env) webhook(kind string, questionID uint, intent string) (int, map[string]interface{}) {
	e.t.Helper()
	return e.sessionWebhook(kind, questionID, intent, "")
}

func (e *env) sessionWebhook(kind string, questionID uint, intent, sessionID string) (int, map[string]interface{}) {
	e.t.Helper()
	raw, err := json.Marshal(payment.StubEvent{
		ID:              fmt.Sprintf("evt_%s_%d%s", kind, questionID, sessionID),
		Type:            kind,
		QuestionID:      questionID,
		PaymentIntentID: intent,
		SessionID:       sessionID,
	})
	require.NoError(e.t, err)
	return e.do(http.MethodPost, "/api/v1/webhooks/payment", nil, raw, payment.StubSignatureHeader, e.gw.Sign(raw))
}

func (e *env) createPaid() uint {
	e.t.Helper()
	id := e.createQuestion()
	code, body := e.webhook(payment.EventCompleted, id, fmt.Sprintf("pi_%d", id))
	require.Equal(e.t, http.StatusOK, code, body)
	require.Equal(e.t, "applied", body["outcome"])
	return id
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestQuestionRoutesRequireAuth(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(http.MethodPost, "/api/v1/questions", nil, map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(http.MethodPost, "/api/v1/questions", e.answerer, map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAnsweredFlow(t *testing.T) {
	e := newEnv(t)
	id := e.createQuestion()

	code, body := e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/checkout-session", id), e.questioner, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.NotEmpty(t, body["session_id"])
	assert.Contains(t, body["url"], "session_id=")

	// The answerer cannot see an unpaid question.
	code, _ = e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), e.answerer, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = e.webhook(payment.EventCompleted, id, "pi_flow")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "applied", body["outcome"])

	code, body = e.webhook(payment.EventCompleted, id, "pi_flow")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "duplicate", body["outcome"])

	code, body = e.do(http.MethodGet, "/api/v1/questions/received?status=pending", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	q := body["question"].(map[string]interface{})
	assert.Equal(t, domain.QuestionStatusPending, q["status"])
	due, err := time.Parse(time.RFC3339, q["due_at"].(string))
	require.NoError(t, err)
	assert.True(t, start.Add(4*time.Hour).Equal(due), due)

	e.clock.Advance(time.Hour)
	code, body = e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d", id), e.answerer, map[string]string{"answer": "By tenant id."})
	require.Equal(t, http.StatusCreated, code, body)
	answerID := uint(body["answer"].(map[string]interface{})["id"].(float64))

	code, body = e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d", id), e.answerer, map[string]string{"answer": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ConflictAnswered, body["reason"])

	code, _ = e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d/review", answerID), e.questioner, map[string]interface{}{"rate": 5, "review": "great"})
	assert.Equal(t, http.StatusOK, code)
	code, body = e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d/review", answerID), e.questioner, map[string]interface{}{"rate": 1})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ConflictReviewed, body["reason"])

	code, body = e.do(http.MethodGet, "/api/v1/answerers/me/stats", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["answered_count"])
	assert.Equal(t, float64(1), body["response_rate"])
	assert.Equal(t, float64(5), body["average_rating"])

	code, body = e.do(http.MethodGet, "/api/v1/me/earnings", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1500), body["total_cents"])

	code, body = e.do(http.MethodGet, "/api/v1/me/notifications", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	types := []string{}
	for _, n := range body["notifications"].([]interface{}) {
		types = append(types, n.(map[string]interface{})["type"].(string))
	}
	assert.ElementsMatch(t, []string{domain.NotifQuestionAssigned, domain.NotifAnswerReviewed}, types)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	e := newEnv(t)
	id := e.createQuestion()
	raw, _ := json.Marshal(payment.StubEvent{ID: "evt", Type: payment.EventCompleted, QuestionID: id})

	code, _ := e.do(http.MethodPost, "/api/v1/webhooks/payment", nil, raw, payment.StubSignatureHeader, "forged")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), e.questioner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.QuestionStatusNotPaid, body["question"].(map[string]interface{})["status"])
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	e := newEnv(t)
	raw := []byte(`{"id":"evt_x","type":"customer.created","question_id":1}`)
	code, body := e.do(http.MethodPost, "/api/v1/webhooks/payment", nil, raw, payment.StubSignatureHeader, e.gw.Sign(raw))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ignored", body["outcome"])
}

func TestExpiredCheckoutDeletesQuestion(t *testing.T) {
	e := newEnv(t)
	id := e.createQuestion()
	code, body := e.webhook(payment.EventExpired, id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "applied", body["outcome"])

	code, _ = e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), e.questioner, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStaleCheckoutExpiryDoesNotDropPaidQuestion(t *testing.T) {
	e := newEnv(t)
	id := e.createQuestion()
	path := fmt.Sprintf("/api/v1/questions/%d/checkout-session", id)

	code, first := e.do(http.MethodGet, path, e.questioner, nil)
	require.Equal(t, http.StatusOK, code, first)
	code, reused := e.do(http.MethodGet, path, e.questioner, nil)
	require.Equal(t, http.StatusOK, code, reused)
	assert.Equal(t, first["session_id"], reused["session_id"])

	e.clock.Advance(2 * time.Hour)
	code, second := e.do(http.MethodGet, path, e.questioner, nil)
	require.Equal(t, http.StatusOK, code, second)
	require.NotEqual(t, first["session_id"], second["session_id"])

	code, body := e.sessionWebhook(payment.EventExpired, id, "", first["session_id"].(string))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ignored", body["outcome"])

	code, body = e.sessionWebhook(payment.EventCompleted, id, "pi_live", second["session_id"].(string))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "applied", body["outcome"])

	code, body = e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), e.questioner, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, domain.QuestionStatusPending, body["question"].(map[string]interface{})["status"])
}

func TestSweepExpiresAndRefunds(t *testing.T) {
	e := newEnv(t)
	id := e.createPaid()

	code, _ := e.do(http.MethodGet, "/api/v1/maintenance/sweep", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := e.do(http.MethodGet, "/api/v1/maintenance/sweep", nil, nil, middleware.MaintenanceTokenHeader, "mtok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["expired"])

	e.clock.Advance(4*time.Hour + time.Second)
	code, body = e.do(http.MethodGet, "/api/v1/maintenance/sweep", nil, nil, middleware.MaintenanceTokenHeader, "mtok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["expired"])
	assert.Equal(t, float64(1), body["refunds_attempted"])

	refunds := e.gw.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, id, refunds[0].QuestionID)
	assert.Equal(t, int64(1500), refunds[0].AmountCents)

	code, body = e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d", id), e.answerer, map[string]string{"answer": "too late"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ConflictExpired, body["reason"])

	code, body = e.do(http.MethodGet, "/api/v1/maintenance/sweep", nil, nil, middleware.MaintenanceTokenHeader, "mtok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["expired"])
	assert.Len(t, e.gw.Refunds(), 1)

	code, body = e.do(http.MethodGet, "/api/v1/maintenance/refunds/retry", nil, nil, middleware.MaintenanceTokenHeader, "mtok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["scanned"])
}

func TestRefundRetryUsesConfiguredStaleness(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.Sweeper.RefundStaleAfter = 30 * time.Minute })
	attempted := start
	require.NoError(t, e.app.DB.Create(&models.Refund{
		QuestionID:      99,
		PaymentIntentID: "pi_lost",
		AmountCents:     1500,
		Currency:        "usd",
		Status:          domain.RefundStatusPending,
		Attempts:        1,
		LastAttemptAt:   &attempted,
	}).Error)

	e.clock.Advance(20 * time.Minute)
	code, body := e.do(http.MethodGet, "/api/v1/maintenance/refunds/retry", nil, nil, middleware.MaintenanceTokenHeader, "mtok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["scanned"])

	e.clock.Advance(11 * time.Minute)
	code, body = e.do(http.MethodGet, "/api/v1/maintenance/refunds/retry", nil, nil, middleware.MaintenanceTokenHeader, "mtok")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["scanned"])
	assert.Equal(t, float64(1), body["succeeded"])
	assert.Len(t, e.gw.Refunds(), 1)
}

func TestLateAnswerExpiresOnTheSpot(t *testing.T) {
	e := newEnv(t)
	id := e.createPaid()
	e.clock.Advance(5 * time.Hour)

	code, body := e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d", id), e.answerer, map[string]string{"answer": "late"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ConflictExpired, body["reason"])

	code, body = e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), e.questioner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.QuestionStatusExpired, body["question"].(map[string]interface{})["status"])
	assert.Len(t, e.gw.Refunds(), 1)
}

func TestCreateQuestionValidation(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(http.MethodPost, "/api/v1/questions", e.questioner, map[string]interface{}{
		"answerer_id":      e.answerer.ID,
		"question_type_id": e.textType.ID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "question", body["field"])

	code, _ = e.do(http.MethodPost, "/api/v1/questions", e.questioner, map[string]interface{}{
		"answerer_id":      e.answerer.ID,
		"question_type_id": 9999,
		"question":         "?",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCheckoutForSomeoneElsesQuestion(t *testing.T) {
	e := newEnv(t)
	id := e.createQuestion()
	other := &models.User{Email: "other@example.com", Role: domain.RoleQuestioner}
	require.NoError(t, e.app.Repos.Users.Create(context.Background(), other))

	code, _ := e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/checkout-session", id), other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	e.webhook(payment.EventCompleted, id, "pi_paid")
	code, body := e.do(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/checkout-session", id), e.questioner, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, domain.ConflictNotPayable, body["reason"])
}

func TestMultipartPictureQuestion(t *testing.T) {
	e := newEnv(t)
	picType := &models.QuestionType{
		AnswererID:             e.answerer.ID,
		Kind:                   domain.QuestionKindPicture,
		PriceCents:             900,
		Currency:               "usd",
		ResponseTimeHours:      2,
		NumberOfPictureOptions: 2,
		Enabled:                true,
	}
	require.NoError(t, e.app.Repos.QuestionTypes.Create(context.Background(), picType))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("answerer_id", fmt.Sprint(e.answerer.ID)))
	require.NoError(t, mw.WriteField("question_type_id", fmt.Sprint(picType.ID)))
	require.NoError(t, mw.WriteField("question", "Which one looks better?"))
	for _, name := range []string{"a.jpg", "b.jpg"} {
		fw, err := mw.CreateFormFile("pictures", name)
		require.NoError(t, err)
		_, _ = fw.Write([]byte("jpeg-bytes"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/questions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(e.questioner))
	code, body := e.serve(req)
	require.Equal(t, http.StatusCreated, code, body)

	q := body["question"].(map[string]interface{})
	assert.Equal(t, []interface{}{"https://img.example.com/q/1.jpg", "https://img.example.com/q/2.jpg"}, q["pictures"])
	assert.Equal(t, float64(900), q["price_cents"])
}

func TestQuestionTypeRoutes(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(http.MethodPost, "/api/v1/question-types", e.answerer, map[string]interface{}{
		"type": "MULTIPLE_CHOICE", "price_cents": 500, "number_of_choice_options": 4,
	})
	require.Equal(t, http.StatusCreated, code, body)
	created := body["question_type"].(map[string]interface{})
	assert.Equal(t, float64(24), created["response_time"])
	assert.Equal(t, false, created["enabled"])

	code, body = e.do(http.MethodGet, fmt.Sprintf("/api/v1/question-types?answerer_id=%d", e.answerer.ID), e.questioner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["question_types"], 1)

	code, body = e.do(http.MethodGet, "/api/v1/question-types", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["question_types"], 2)

	code, _ = e.do(http.MethodPut, fmt.Sprintf("/api/v1/question-types/%d", e.textType.ID), e.answerer, map[string]interface{}{
		"type": "TEXT", "price_cents": 2500, "response_time": 12, "enabled": true,
	})
	assert.Equal(t, http.StatusOK, code)

	code, _ = e.do(http.MethodPost, "/api/v1/question-types", e.answerer, map[string]interface{}{"type": "VIDEO", "price_cents": 500})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWithdrawalRoutes(t *testing.T) {
	e := newEnv(t)
	id := e.createPaid()
	code, _ := e.do(http.MethodPost, fmt.Sprintf("/api/v1/answers/%d", id), e.answerer, map[string]string{"answer": "ok"})
	require.Equal(t, http.StatusCreated, code)

	code, body := e.do(http.MethodPost, "/api/v1/withdrawals", e.answerer, map[string]interface{}{"amount": 20, "phone_number": "0712345678"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = e.do(http.MethodPost, "/api/v1/withdrawals", e.answerer, map[string]interface{}{"amount": 10, "phone_number": "0712345678"})
	require.Equal(t, http.StatusCreated, code, body)
	orderID := body["withdrawal"].(map[string]interface{})["order_id"].(string)

	code, _ = e.do(http.MethodPost, "/api/v1/webhooks/withdrawal", nil, map[string]string{"merchant_order_id": orderID, "status": "COMPLETED"})
	assert.Equal(t, http.StatusOK, code)

	code, body = e.do(http.MethodGet, "/api/v1/me/withdrawals", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	list := body["withdrawals"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, domain.WithdrawalStatusCompleted, list[0].(map[string]interface{})["status"])

	code, body = e.do(http.MethodGet, "/api/v1/me/earnings", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(500), body["available_cents"])
}

func TestNotificationMarkRead(t *testing.T) {
	e := newEnv(t)
	e.createPaid()

	code, body := e.do(http.MethodGet, "/api/v1/me/notifications", e.answerer, nil)
	require.Equal(t, http.StatusOK, code)
	list := body["notifications"].([]interface{})
	require.Len(t, list, 1)
	nid := uint(list[0].(map[string]interface{})["id"].(float64))

	code, _ = e.do(http.MethodPut, fmt.Sprintf("/api/v1/me/notifications/%d/read", nid), e.questioner, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(http.MethodPut, fmt.Sprintf("/api/v1/me/notifications/%d/read", nid), e.answerer, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = e.do(http.MethodPost, "/api/v1/me/fcm-token", e.answerer, map[string]string{"token": "device-1"})
	assert.Equal(t, http.StatusOK, code)
	u, err := e.app.Repos.Users.GetByID(context.Background(), e.answerer.ID)
	require.NoError(t, err)
	assert.Equal(t, "device-1", u.FCMToken)
}
