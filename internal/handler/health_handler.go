package handler

import (
	"context"
	"net/http"
	"time"

	"qabackend/internal/sweeper"
	"qabackend/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db        *gorm.DB
	scheduler *sweeper.Scheduler
	hub       *ws.Hub
}

func NewHealthHandler(db *gorm.DB, scheduler *sweeper.Scheduler, hub *ws.Hub) *HealthHandler {
	return &HealthHandler{db: db, scheduler: scheduler, hub: hub}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status, code := "ok", http.StatusOK
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"scheduler":  h.scheduler != nil && h.scheduler.IsRunning(),
		"ws_clients": h.hub.ClientCount(),
	})
}
