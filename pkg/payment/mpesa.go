package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	liberecDefaultBaseURL = "https://card-api.theliberec.com"
	liberecLoginPath      = "/api/v1/merchants/login"
	liberecB2CPath        = "/api/v1/transactions/mpesa/b2c"
	withdrawalWebhookPath = "/api/v1/webhooks/withdrawal"
)

// PayoutProvider sends answerer earnings to a mobile money account.
type PayoutProvider interface {
	InitiateB2C(ctx context.Context, req B2CRequest) (*B2CResponse, error)
}

// B2CRequest is one M-Pesa business-to-customer payout. OrderID doubles as
// the settlement key on the withdrawal webhook.
type B2CRequest struct {
	Amount      int64  // whole currency units
	PhoneNumber string // MSISDN, 2547XXXXXXXX
	OrderID     string
	Description string
}

type B2CResponse struct {
	UUID                string `json:"uuid"`
	OrderID             string `json:"order_id"`
	ConversationID      string `json:"conversation_id"`
	Status              string `json:"status"`
	ResponseCode        string `json:"response_code"`
	ResponseDescription string `json:"response_description"`
}

// liberecB2CBody is the Card API payload. Amount travels as a string.
type liberecB2CBody struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phone_number"`
	Description string `json:"description"`
	Remarks     string `json:"remarks"`
	OrderID     string `json:"order_id"`
	CallbackURL string `json:"callback_url"`
}

// LiberecMpesaProvider pays out over M-Pesa B2C through TheLiberec Card API.
// Every payout logs in first; the API hands out short-lived merchant tokens.
type LiberecMpesaProvider struct {
	baseURL     string
	email       string
	password    string
	callbackURL string
	client      *http.Client
}

func NewLiberecMpesaProvider(baseURL, email, password, webhookBase string) *LiberecMpesaProvider {
	if baseURL == "" {
		baseURL = liberecDefaultBaseURL
	}
	return &LiberecMpesaProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		email:       email,
		password:    password,
		callbackURL: callbackFor(webhookBase),
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func callbackFor(webhookBase string) string {
	base := strings.TrimRight(webhookBase, "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + withdrawalWebhookPath
}

// InitiateB2C submits the payout. Acceptance only means the request was
// queued; the result arrives on the withdrawal webhook.
func (p *LiberecMpesaProvider) InitiateB2C(ctx context.Context, req B2CRequest) (*B2CResponse, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("b2c: order id required")
	}
	var login struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"email": p.email, "password": p.password}
	if err := p.post(ctx, liberecLoginPath, "", creds, &login); err != nil {
		return nil, fmt.Errorf("b2c login: %w", err)
	}

	body := liberecB2CBody{
		Amount:      strconv.FormatInt(req.Amount, 10),
		PhoneNumber: req.PhoneNumber,
		Description: req.Description,
		Remarks:     "Withdrawal payment",
		OrderID:     req.OrderID,
		CallbackURL: p.callbackURL,
	}
	if body.Description == "" {
		body.Description = "Answerer earnings payout"
	}
	log.Printf("[Withdrawal] b2c order_id=%s amount=%d", req.OrderID, req.Amount)
	var out B2CResponse
	if err := p.post(ctx, liberecB2CPath, login.Token, body, &out); err != nil {
		return nil, fmt.Errorf("b2c order %s: %w", req.OrderID, err)
	}
	if out.OrderID == "" {
		out.OrderID = req.OrderID
	}
	return &out, nil
}

// post sends in as JSON and decodes a 200/201 response into out.
func (p *LiberecMpesaProvider) post(ctx context.Context, path, token string, in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return json.Unmarshal(respBody, out)
}
