package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"qabackend/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		verr  *domain.ValidationError
		aerr  *domain.AuthorizationError
		cerr  *domain.StateConflictError
		uerr  *domain.UpstreamError
		nferr *domain.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &aerr):
		c.JSON(http.StatusForbidden, gin.H{"error": aerr.Message})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{
			"error":       cerr.Error(),
			"reason":      cerr.Reason,
			"status":      cerr.Status,
			"question_id": cerr.QuestionID,
		})
	case errors.As(err, &uerr):
		log.Printf("[HTTP] %s %s upstream: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": uerr.Op + " provider unavailable"})
	case errors.As(err, &nferr):
		c.JSON(http.StatusNotFound, gin.H{"error": nferr.Error()})
	default:
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// pagination reads ?limit and ?offset, clamping limit to [1, 100].
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
