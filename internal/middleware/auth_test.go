package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"distribuidora/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T) (*gin.Engine, *token.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer := token.NewIssuer([]byte("test-secret"), time.Hour)
	InitAuth(issuer, CookieOptions{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})

	r := gin.New()
	r.GET("/any", RequireRole(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet(ContextUserID), "role": c.MustGet(ContextUserRole)})
	})
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, issuer
}

func TestRequireRole(t *testing.T) {
	r, issuer := setupAuth(t)
	adminToken, _, err := issuer.Issue(1, "admin", "Admin")
	require.NoError(t, err)
	sellerToken, _, err := issuer.Issue(2, "seller", "Seller")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/any", "", http.StatusUnauthorized},
		{"bad scheme", "/any", "Token " + sellerToken, http.StatusUnauthorized},
		{"garbage token", "/any", "Bearer nope", http.StatusUnauthorized},
		{"any role", "/any", "Bearer " + sellerToken, http.StatusOK},
		{"seller on admin route", "/admin", "Bearer " + sellerToken, http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole_ReadsCookie(t *testing.T) {
	r, issuer := setupAuth(t)
	tok, _, err := issuer.Issue(9, "seller", "Seller")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/any", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9,"role":"seller"}`, w.Body.String())
}

func TestSetAndClearTokenCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	InitAuth(token.NewIssuer([]byte("x"), time.Hour), CookieOptions{Secure: true, AccessTTL: time.Hour, RefreshTTL: 2 * time.Hour})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	SetTokenCookies(c, "access", "refresh")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/logout", nil)
	ClearTokenCookies(c)
	for _, ck := range w.Result().Cookies() {
		assert.Empty(t, ck.Value)
		assert.True(t, ck.MaxAge < 0)
	}
}
