package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qabackend/config"
	"qabackend/internal/auth"
	"qabackend/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func jwtCfg() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "mw-secret", AccessExpiry: time.Hour, Issuer: "qa-backend"}
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	cfg := jwtCfg()
	r := gin.New()
	r.GET("/me", AuthRequired(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetRole(c)})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	tok, err := auth.GenerateAccessToken(cfg, 7, "q@example.com", domain.RoleQuestioner)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"role":"QUESTIONER"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	cfg := jwtCfg()
	r := gin.New()
	r.GET("/answerer", AuthRequired(cfg), RequireRole(domain.RoleAnswerer, domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tok, _ := auth.GenerateAccessToken(cfg, 1, "", domain.RoleQuestioner)
	req := httptest.NewRequest(http.MethodGet, "/answerer", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	tok, _ = auth.GenerateAccessToken(cfg, 2, "", domain.RoleAnswerer)
	req = httptest.NewRequest(http.MethodGet, "/answerer", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

func TestMaintenanceAccess(t *testing.T) {
	open := gin.New()
	open.GET("/sweep", MaintenanceAccess(&config.MaintenanceConfig{}), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/sweep", nil)).Code)

	guarded := gin.New()
	guarded.GET("/sweep", MaintenanceAccess(&config.MaintenanceConfig{Token: "s3cret"}), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(guarded, httptest.NewRequest(http.MethodGet, "/sweep", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/sweep", nil)
	req.Header.Set(MaintenanceTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(guarded, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/sweep", nil)
	req.Header.Set(MaintenanceTokenHeader, "s3cret")
	assert.Equal(t, http.StatusOK, serve(guarded, req).Code)
}

func TestRateLimiterWindow(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	defer l.Stop()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	assert.True(t, l.Allow("other"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("k"))
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewInMemoryRateLimiter(1, time.Minute)
	defer l.Stop()
	r := gin.New()
	r.POST("/q", RateLimit(l), func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusCreated, serve(r, httptest.NewRequest(http.MethodPost, "/q", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodPost, "/q", nil)).Code)
}
