package handler

import (
	"net/http"

	"qabackend/internal/lifecycle"
	"qabackend/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AnswerHandler struct {
	engine *lifecycle.Engine
}

func NewAnswerHandler(engine *lifecycle.Engine) *AnswerHandler {
	return &AnswerHandler{engine: engine}
}

// Submit answers the question in :id. Late answers get 409 with
// reason question_expired.
func (h *AnswerHandler) Submit(c *gin.Context) {
	qid, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.engine.SubmitAnswer(c.Request.Context(), lifecycle.SubmitAnswerInput{
		QuestionID: qid,
		AnswererID: middleware.GetUserID(c),
		Body:       req.Answer,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"answer": a})
}

func (h *AnswerHandler) Review(c *gin.Context) {
	aid, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Rate   int    `json:"rate"`
		Review string `json:"review"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.engine.ReviewAnswer(c.Request.Context(), lifecycle.ReviewInput{
		AnswerID:     aid,
		QuestionerID: middleware.GetUserID(c),
		Rate:         req.Rate,
		Review:       req.Review,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": a})
}
