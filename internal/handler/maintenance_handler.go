package handler

import (
	"net/http"

	"qabackend/internal/sweeper"

	"github.com/gin-gonic/gin"
)

// MaintenanceHandler exposes on-demand runs of the scheduled jobs, for cron
// callers and operators. A run skipped because another instance holds the
// lock answers 200 with skipped=true.
type MaintenanceHandler struct {
	scheduler *sweeper.Scheduler
}

func NewMaintenanceHandler(s *sweeper.Scheduler) *MaintenanceHandler {
	return &MaintenanceHandler{scheduler: s}
}

func (h *MaintenanceHandler) Sweep(c *gin.Context) {
	report, ran := h.scheduler.RunSweepOnce(c.Request.Context())
	if !ran {
		c.JSON(http.StatusOK, gin.H{"skipped": true, "reason": "sweep already running"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *MaintenanceHandler) RetryRefunds(c *gin.Context) {
	report, ran := h.scheduler.RunRefundRetryOnce(c.Request.Context())
	if !ran {
		c.JSON(http.StatusOK, gin.H{"skipped": true, "reason": "refund retry already running"})
		return
	}
	c.JSON(http.StatusOK, report)
}
