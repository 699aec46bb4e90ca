package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/dailybrew/replenish/pkg/config"
)

func newAuthRouter(cfg *cfgpkg.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", CustomerAuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"customer_id": c.GetString("customer_id")})
	})
	r.GET("/admin", AdminAuthMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func signCustomerToken(t *testing.T, secret, customerID string) string {
	t.Helper()
	claims := jwt.MapClaims{}
	if customerID != "" {
		claims["customer_id"] = customerID
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestCustomerAuthMiddleware(t *testing.T) {
	cfg := &cfgpkg.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	r := newAuthRouter(cfg)

	get := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, get("").Code)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer not-a-jwt").Code)
	assert.Equal(t, http.StatusUnauthorized,
		get("Bearer "+signCustomerToken(t, "wrong-secret", "cust-1")).Code)
	assert.Equal(t, http.StatusUnauthorized,
		get("Bearer "+signCustomerToken(t, "test-secret", "")).Code)

	w := get("Bearer " + signCustomerToken(t, "test-secret", "cust-1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"customer_id":"cust-1"`)
}

func TestAdminAuthMiddleware(t *testing.T) {
	cfg := &cfgpkg.Config{}
	cfg.Auth.AdminToken = "ops-token"
	r := newAuthRouter(cfg)

	get := func(authz string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusUnauthorized, get("Bearer wrong"))
	assert.Equal(t, http.StatusOK, get("Bearer ops-token"))
}

func TestAdminAuthMiddleware_UnsetTokenLocksRoutes(t *testing.T) {
	r := newAuthRouter(&cfgpkg.Config{})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
