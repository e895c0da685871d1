package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"qabackend/internal/lifecycle"
	"qabackend/pkg/payment"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 1 << 20

// PaymentWebhookHandler verifies gateway events and hands them to the engine.
// A 5xx asks the gateway to redeliver; anything already recorded as processed
// is acknowledged as a duplicate.
type PaymentWebhookHandler struct {
	engine          *lifecycle.Engine
	gateway         payment.Gateway
	signatureHeader string
}

func NewPaymentWebhookHandler(engine *lifecycle.Engine, gateway payment.Gateway, signatureHeader string) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{engine: engine, gateway: gateway, signatureHeader: signatureHeader}
}

func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	ev, err := h.gateway.ParseEvent(body, c.GetHeader(h.signatureHeader))
	switch {
	case errors.Is(err, payment.ErrUnhandledEvent):
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": lifecycle.OutcomeIgnored})
		return
	case errors.Is(err, payment.ErrInvalidSignature):
		log.Printf("[Webhook] %s: rejected event with invalid signature", h.gateway.Name())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	case err != nil:
		log.Printf("[Webhook] %s: parse: %v", h.gateway.Name(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	outcome, err := h.engine.HandlePaymentEvent(c.Request.Context(), ev)
	if err != nil {
		log.Printf("[Webhook] %s %s question=%d: %v", ev.Provider, ev.Kind, ev.QuestionID, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
