package handler

import (
	"net/http"

	"qabackend/internal/middleware"
	"qabackend/internal/repository"
	"qabackend/internal/service"

	"github.com/gin-gonic/gin"
)

type EarningHandler struct {
	earnings    *repository.EarningRepository
	withdrawals *service.WithdrawalService
}

func NewEarningHandler(earnings *repository.EarningRepository, withdrawals *service.WithdrawalService) *EarningHandler {
	return &EarningHandler{earnings: earnings, withdrawals: withdrawals}
}

// List returns the caller's earning ledger with lifetime and withdrawable totals.
func (h *EarningHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	limit, offset := pagination(c)
	list, err := h.earnings.ListByAnswerer(ctx, userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.earnings.SumByAnswerer(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	available, err := h.withdrawals.Available(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"earnings":        list,
		"total_cents":     total,
		"available_cents": available,
	})
}
