package handler

import (
	"net/http"

	"qabackend/internal/domain"
	"qabackend/internal/middleware"
	"qabackend/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo  *repository.NotificationRepository
	users *repository.UserRepository
}

func NewNotificationHandler(repo *repository.NotificationRepository, users *repository.UserRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo, users: users}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.repo.ListByUserID(middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	updated, err := h.repo.MarkRead(id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !updated {
		respondError(c, domain.NewNotFound("notification", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterFCMToken saves the device token used for push notifications.
func (h *NotificationHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if err := h.users.UpdateFCMToken(c.Request.Context(), middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
