package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vapor-share-api/internal/models"
	appErrors "github.com/noah-isme/vapor-share-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	got    string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.got = token
	return s.claims, s.err
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	claims := &models.JWTClaims{Email: "a@example.com"}
	claims.Subject = "user-1"
	validator := &stubValidator{claims: claims}

	router := gin.New()
	router.GET("/private", JWT(validator), func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		c.String(http.StatusOK, value.(*models.JWTClaims).UserID())
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "bearer token-123")
	resp := serve(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "user-1", resp.Body.String())
	assert.Equal(t, "token-123", validator.got)

	for _, header := range []string{"", "Basic abc", "Bearer ", "token-123"} {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", header)
		resp := serve(router, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, header)
		assert.JSONEq(t, `{"error":"Missing or invalid authorization header","code":"UNAUTHORIZED"}`, resp.Body.String())
	}

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "Invalid or expired token")
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)
}

func TestCleanupTokenMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	open := gin.New()
	open.POST("/cleanup", CleanupToken(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodPost, "/cleanup", nil)).Code)

	guarded := gin.New()
	guarded.POST("/cleanup", CleanupToken("s3cret"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(guarded, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(guarded, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, serve(guarded, req).Code)
}

type countingLimiter struct {
	failures map[string]int
	max      int
}

func (l *countingLimiter) Allow(ctx context.Context, key string) error {
	if l.failures[key] >= l.max {
		return appErrors.ErrTooManyAttempts
	}
	return nil
}

func (l *countingLimiter) RecordFailure(ctx context.Context, key string) {
	l.failures[key]++
}

func TestAttemptLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &countingLimiter{failures: map[string]int{}, max: 2}

	router := gin.New()
	router.GET("/retrieve", AttemptLimit(limiter), func(c *gin.Context) {
		if c.Query("code") == "GOOD2345" {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusNotFound)
	})

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/retrieve?code=GOOD2345", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest(http.MethodGet, "/retrieve?code=BAD", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, httptest.NewRequest(http.MethodGet, "/retrieve?code=BAD", nil)).Code)

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/retrieve?code=GOOD2345", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Contains(t, resp.Body.String(), "TOO_MANY_ATTEMPTS")
}
