package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"qabackend/internal/service"

	"github.com/gin-gonic/gin"
)

// B2CCallback is the subset of the M-Pesa B2C callback payload we act on.
type B2CCallback struct {
	MerchantOrderID   string `json:"merchant_order_id"`
	OrderID           string `json:"order_id"`
	ReferenceOrderID  string `json:"reference_order_id"`
	ReceiptNumber     string `json:"receipt_number"`
	Status            string `json:"status"`
	StatusCode        string `json:"status_code"`
	StatusDescription string `json:"status_description"`
	TransactionUUID   string `json:"transaction_uuid"`
}

func (p B2CCallback) orderID() string {
	for _, id := range []string{p.MerchantOrderID, p.OrderID, p.ReferenceOrderID} {
		if id != "" {
			return id
		}
	}
	return ""
}

type WithdrawalWebhookHandler struct {
	svc *service.WithdrawalService
}

func NewWithdrawalWebhookHandler(svc *service.WithdrawalService) *WithdrawalWebhookHandler {
	return &WithdrawalWebhookHandler{svc: svc}
}

// Handle settles a withdrawal. Unknown or already settled orders are
// acknowledged so the provider stops retrying.
func (h *WithdrawalWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	var payload B2CCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[Withdrawal callback] json unmarshal error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	orderID := payload.orderID()
	if orderID == "" {
		log.Printf("[Withdrawal callback] no order_id in payload")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	completed := strings.EqualFold(payload.Status, "COMPLETED")
	w, applied, err := h.svc.Settle(orderID, completed)
	if err != nil {
		log.Printf("[Withdrawal callback] settle %s: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	switch {
	case w == nil:
		log.Printf("[Withdrawal callback] withdrawal not found for order_id=%s", orderID)
	case !applied:
		log.Printf("[Withdrawal callback] withdrawal %d already %s for order_id=%s", w.ID, w.Status, orderID)
	default:
		log.Printf("[Withdrawal callback] withdrawal %d %s for order_id=%s (%s)", w.ID, w.Status, orderID, payload.StatusDescription)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
