package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"qabackend/internal/domain"
	"qabackend/internal/lifecycle"
	"qabackend/internal/middleware"
	"qabackend/internal/models"
	"qabackend/internal/repository"
	"qabackend/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

const maxPictureBytes = 8 << 20

type QuestionHandler struct {
	engine    *lifecycle.Engine
	questions *repository.QuestionRepository
	pictures  cloudinary.PictureStore
}

func NewQuestionHandler(engine *lifecycle.Engine, questions *repository.QuestionRepository, pictures cloudinary.PictureStore) *QuestionHandler {
	return &QuestionHandler{engine: engine, questions: questions, pictures: pictures}
}

// questionView decodes the stored JSON lists for API responses.
type questionView struct {
	*models.Question
	Choices  []string `json:"choices"`
	Pictures []string `json:"pictures"`
}

func viewOf(q *models.Question) questionView {
	v := questionView{Question: q, Choices: []string{}, Pictures: []string{}}
	if q.Choices != "" {
		_ = json.Unmarshal([]byte(q.Choices), &v.Choices)
	}
	if q.Pictures != "" {
		_ = json.Unmarshal([]byte(q.Pictures), &v.Pictures)
	}
	return v
}

func viewsOf(list []models.Question) []questionView {
	out := make([]questionView, len(list))
	for i := range list {
		out[i] = viewOf(&list[i])
	}
	return out
}

// Create accepts JSON, or multipart/form-data with picture files under "pictures".
func (h *QuestionHandler) Create(c *gin.Context) {
	in := lifecycle.CreateQuestionInput{}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if !h.bindMultipart(c, &in) {
			return
		}
	} else if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in.QuestionerID = middleware.GetUserID(c)

	q, err := h.engine.CreateQuestion(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": viewOf(q)})
}

func (h *QuestionHandler) bindMultipart(c *gin.Context, in *lifecycle.CreateQuestionInput) bool {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return false
	}
	answererID, _ := strconv.ParseUint(c.PostForm("answerer_id"), 10, 64)
	typeID, _ := strconv.ParseUint(c.PostForm("question_type_id"), 10, 64)
	in.AnswererID = uint(answererID)
	in.QuestionTypeID = uint(typeID)
	in.Body = c.PostForm("question")
	in.Choices = form.Value["choices"]

	files := form.File["pictures"]
	if len(files) == 0 {
		return true
	}
	if h.pictures == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "picture upload is not available"})
		return false
	}
	userID := middleware.GetUserID(c)
	for _, fh := range files {
		if fh.Size > maxPictureBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "picture too large", "field": "pictures"})
			return false
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read picture"})
			return false
		}
		url, err := h.pictures.UploadPicture(c.Request.Context(), f, userID)
		f.Close()
		if err != nil {
			respondError(c, domain.NewUpstreamError("picture upload", err))
			return false
		}
		in.Pictures = append(in.Pictures, url)
	}
	return true
}

// Get returns a question to its questioner, or to its answerer once paid.
func (h *QuestionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.engine.GetQuestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	switch {
	case middleware.GetRole(c) == domain.RoleAdmin:
	case q.QuestionerID == userID:
	case q.AnswererID == userID && q.Paid:
	default:
		respondError(c, domain.NewNotFound("question", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": viewOf(q)})
}

func statusFilter(c *gin.Context) (string, bool) {
	s := strings.ToUpper(c.Query("status"))
	switch s {
	case "", domain.QuestionStatusNotPaid, domain.QuestionStatusPending, domain.QuestionStatusAnswered, domain.QuestionStatusExpired:
		return s, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter", "field": "status"})
	return "", false
}

// ListAsked lists the caller's own questions, paid or not.
func (h *QuestionHandler) ListAsked(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	list, total, err := h.questions.ListByQuestioner(c.Request.Context(), middleware.GetUserID(c), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": viewsOf(list), "total": total, "limit": limit, "offset": offset})
}

// ListReceived lists paid questions assigned to the calling answerer.
func (h *QuestionHandler) ListReceived(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	list, total, err := h.questions.ListByAnswerer(c.Request.Context(), middleware.GetUserID(c), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": viewsOf(list), "total": total, "limit": limit, "offset": offset})
}

// CheckoutSession opens a gateway checkout for an unpaid question.
func (h *QuestionHandler) CheckoutSession(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	session, err := h.engine.StartCheckout(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
