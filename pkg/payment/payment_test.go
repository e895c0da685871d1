package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestStubParseEventVerifiesSignature(t *testing.T) {
	gw := NewStubGateway("whsec", "")
	body, _ := json.Marshal(StubEvent{ID: "evt_1", Type: EventCompleted, QuestionID: 42, PaymentIntentID: "pi_42"})

	_, err := gw.ParseEvent(body, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	ev, err := gw.ParseEvent(body, gw.Sign(body))
	require.NoError(t, err)
	assert.Equal(t, uint(42), ev.QuestionID)
	assert.Equal(t, EventCompleted, ev.Kind)
	assert.Equal(t, "pi_42", ev.PaymentIntentID)
	assert.Equal(t, "stub", ev.Provider)
}

func TestStubParseEventUnknownType(t *testing.T) {
	gw := NewStubGateway("whsec", "")
	body := []byte(`{"id":"evt_2","type":"charge.dispute","question_id":1}`)
	_, err := gw.ParseEvent(body, gw.Sign(body))
	assert.ErrorIs(t, err, ErrUnhandledEvent)
}

func TestStubCheckoutHonoursExpiry(t *testing.T) {
	gw := NewStubGateway("", "https://pay.example.com")
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	s, err := gw.CreateCheckout(context.Background(), CheckoutRequest{QuestionID: 7, ExpiresAt: at})
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(at))
	assert.Equal(t, "https://pay.example.com?session_id="+s.ID, s.URL)

	s, err = gw.CreateCheckout(context.Background(), CheckoutRequest{QuestionID: 7})
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.After(time.Now()))
}

func TestStubRefundDeduplicatesByKey(t *testing.T) {
	gw := NewStubGateway("", "")
	ctx := context.Background()
	req := RefundRequest{QuestionID: 1, PaymentIntentID: "pi", AmountCents: 100, IdempotencyKey: "k1"}

	gw.SetRefundError(errors.New("gateway down"))
	_, err := gw.Refund(ctx, req)
	require.Error(t, err)

	gw.SetRefundError(nil)
	first, err := gw.Refund(ctx, req)
	require.NoError(t, err)
	second, err := gw.Refund(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, gw.Refunds(), 1)
	assert.Equal(t, 3, gw.RefundCalls())
}

func stripeSignature(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func stripeEvent(typ string, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_test","object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`, typ, object))
}

func TestStripeParseEventCompleted(t *testing.T) {
	gw := NewStripeGateway("sk_test", "whsec_test", nil)
	payload := stripeEvent("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","payment_status":"paid","client_reference_id":"9","metadata":{"question_id":"9"},"payment_intent":"pi_9"}`)

	ev, err := gw.ParseEvent(payload, stripeSignature("whsec_test", payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventCompleted, ev.Kind)
	assert.Equal(t, uint(9), ev.QuestionID)
	assert.Equal(t, "pi_9", ev.PaymentIntentID)
	assert.Equal(t, "cs_1", ev.CheckoutSessionID)
}

func TestStripeParseEventRejectsBadSignature(t *testing.T) {
	gw := NewStripeGateway("sk_test", "whsec_test", nil)
	payload := stripeEvent("checkout.session.expired", `{"id":"cs_1","object":"checkout.session","metadata":{"question_id":"9"}}`)
	_, err := gw.ParseEvent(payload, stripeSignature("other", payload, time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStripeParseEventSkipsUnpaidCompletion(t *testing.T) {
	gw := NewStripeGateway("sk_test", "whsec_test", nil)
	payload := stripeEvent("checkout.session.completed",
		`{"id":"cs_2","object":"checkout.session","payment_status":"unpaid","metadata":{"question_id":"3"}}`)
	_, err := gw.ParseEvent(payload, stripeSignature("whsec_test", payload, time.Now()))
	assert.ErrorIs(t, err, ErrUnhandledEvent)
}

func TestStripeRefundSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re_1","object":"refund","status":"succeeded"}`))
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	gw := NewStripeGateway("sk_test", "whsec", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	res, err := gw.Refund(context.Background(), RefundRequest{QuestionID: 5, PaymentIntentID: "pi_5", IdempotencyKey: "refund-question-5"})
	require.NoError(t, err)
	assert.Equal(t, "re_1", res.ID)
	assert.Equal(t, "refund-question-5", gotKey)
	assert.Equal(t, "pi_5", gotForm.Get("payment_intent"))
	assert.Equal(t, "5", gotForm.Get("metadata[question_id]"))
}

func TestLiberecInitiateB2C(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/merchants/login":
			_, _ = w.Write([]byte(`{"token":"tok"}`))
		case "/api/v1/transactions/mpesa/b2c":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_, _ = fmt.Fprintf(w, `{"order_id":%q,"status":"PENDING","amount":12}`, body["order_id"])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewLiberecMpesaProvider(srv.URL, "m@example.com", "pw", "api.example.com")
	out, err := p.InitiateB2C(context.Background(), B2CRequest{Amount: 12, PhoneNumber: "254700000001", OrderID: "wd-1"})
	require.NoError(t, err)
	assert.Equal(t, "wd-1", out.OrderID)
	assert.Equal(t, "PENDING", out.Status)
}
