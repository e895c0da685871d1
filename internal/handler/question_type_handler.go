package handler

import (
	"net/http"
	"strconv"
	"strings"

	"qabackend/internal/domain"
	"qabackend/internal/middleware"
	"qabackend/internal/models"
	"qabackend/internal/repository"

	"github.com/gin-gonic/gin"
)

type QuestionTypeHandler struct {
	repo *repository.QuestionTypeRepository
}

func NewQuestionTypeHandler(repo *repository.QuestionTypeRepository) *QuestionTypeHandler {
	return &QuestionTypeHandler{repo: repo}
}

type questionTypeRequest struct {
	Kind                   string `json:"type" binding:"required,oneof=TEXT MULTIPLE_CHOICE PICTURE"`
	PriceCents             int64  `json:"price_cents" binding:"required,min=50"`
	Currency               string `json:"currency" binding:"omitempty,len=3"`
	ResponseTimeHours      int    `json:"response_time" binding:"omitempty,min=1,max=168"`
	NumberOfChoiceOptions  int    `json:"number_of_choice_options" binding:"omitempty,min=2,max=10"`
	NumberOfPictureOptions int    `json:"number_of_picture_options" binding:"omitempty,min=1,max=10"`
	Enabled                *bool  `json:"enabled"`
}

func (r questionTypeRequest) apply(t *models.QuestionType) {
	t.Kind = r.Kind
	t.PriceCents = r.PriceCents
	t.Currency = strings.ToLower(r.Currency)
	if t.Currency == "" {
		t.Currency = domain.DefaultCurrency
	}
	t.ResponseTimeHours = r.ResponseTimeHours
	if t.ResponseTimeHours == 0 {
		t.ResponseTimeHours = domain.DefaultResponseTimeHours
	}
	t.NumberOfChoiceOptions = r.NumberOfChoiceOptions
	t.NumberOfPictureOptions = r.NumberOfPictureOptions
	if r.Enabled != nil {
		t.Enabled = *r.Enabled
	}
}

// List returns an answerer's offers. ?answerer_id=N shows another answerer's
// enabled types; without it the caller sees all of their own.
func (h *QuestionTypeHandler) List(c *gin.Context) {
	answererID := middleware.GetUserID(c)
	enabledOnly := false
	if raw := c.Query("answerer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid answerer_id"})
			return
		}
		enabledOnly = uint(id) != answererID
		answererID = uint(id)
	}
	list, err := h.repo.ListByAnswerer(c.Request.Context(), answererID, enabledOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question_types": list})
}

func (h *QuestionTypeHandler) Create(c *gin.Context) {
	var req questionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := &models.QuestionType{AnswererID: middleware.GetUserID(c)}
	req.apply(t)
	if err := h.repo.Create(c.Request.Context(), t); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question_type": t})
}

// Update edits an owned type. Existing questions keep their snapshot.
func (h *QuestionTypeHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req questionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || t.AnswererID != middleware.GetUserID(c) {
		respondError(c, domain.NewNotFound("question type", id))
		return
	}
	req.apply(t)
	if err := h.repo.Update(c.Request.Context(), t); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question_type": t})
}
