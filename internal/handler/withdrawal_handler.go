package handler

import (
	"net/http"

	"qabackend/internal/middleware"
	"qabackend/internal/service"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	svc *service.WithdrawalService
}

func NewWithdrawalHandler(svc *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{svc: svc}
}

// Create pays out earnings over M-Pesa B2C. The final result arrives on the
// withdrawal webhook.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req struct {
		Amount      int64  `json:"amount" binding:"required,min=1"`
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.svc.Request(c.Request.Context(), service.WithdrawalRequest{
		AnswererID:  middleware.GetUserID(c),
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"withdrawal": w,
		"message":    "Withdrawal initiated. Check your phone for confirmation.",
	})
}

func (h *WithdrawalHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.svc.List(middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}
