package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smberp/backend/internal/infrastructure/auth"
	"github.com/smberp/backend/internal/infrastructure/config"
	"github.com/smberp/backend/internal/infrastructure/logger"
	"github.com/smberp/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: expiration,
		Issuer:                "test-issuer",
	})
}

func issueTestToken(t *testing.T, svc *auth.JWTService) (string, auth.Subject) {
	t.Helper()
	sub := auth.Subject{TenantID: uuid.New(), UserID: uuid.New(), Username: "accountant"}
	tok, err := svc.Issue(sub)
	require.NoError(t, err)
	return tok.AccessToken, sub
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token, sub := issueTestToken(t, svc)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, "accountant", claims.Username)

		tenantID, err := TenantID(c)
		require.NoError(t, err)
		assert.Equal(t, sub.TenantID, tenantID)

		userID, err := UserID(c)
		require.NoError(t, err)
		assert.Equal(t, sub.UserID, userID)

		assert.Equal(t, sub.TenantID.String(), logger.TenantID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	expired, _ := issueTestToken(t, newTestJWTService(-time.Minute))
	foreign, _ := issueTestToken(t, auth.NewJWTService(config.JWTConfig{
		Secret:                "another-secret-key-at-least-32-chars",
		AccessTokenExpiration: time.Minute,
		Issuer:                "test-issuer",
	}))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeUnauthorized},
		{"empty token", "Bearer ", dto.ErrCodeUnauthorized},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"wrong secret", "Bearer " + foreign, dto.ErrCodeTokenInvalid},
		{"expired", "Bearer " + expired, dto.ErrCodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached bool
			router := gin.New()
			router.Use(JWTAuthMiddleware(svc))
			router.GET("/test", func(c *gin.Context) {
				reached = true
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, reached)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestJWTAuthMiddleware_DefaultSkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuthMiddleware(newTestJWTService(time.Minute)))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/documents", func(c *gin.Context) { c.Status(http.StatusOK) })

	for path, want := range map[string]int{
		"/health":           http.StatusOK,
		"/api/v1/ping":      http.StatusOK,
		"/api/v1/documents": http.StatusUnauthorized,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestJWTAuthMiddlewareWithConfig_CustomSkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: newTestJWTService(time.Minute),
		SkipPaths:  []string{"/public"},
	}))
	router.GET("/public", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityHelpers_WithoutClaims(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTTenantID(c))

	_, err := TenantID(c)
	assert.ErrorIs(t, err, auth.ErrMissingTenantID)
	_, err = UserID(c)
	assert.ErrorIs(t, err, auth.ErrMissingUserID)

	c.Set(JWTTenantIDKey, "not-a-uuid")
	_, err = TenantID(c)
	assert.Error(t, err)
}
