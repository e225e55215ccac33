package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"distribuidora/internal/middleware"
	"distribuidora/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testIssuer = token.NewIssuer([]byte("handler-test-secret"), time.Hour)

const testOrigin = "http://localhost:5173"

func newTestRouter(handlers ...RouteRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.InitAuth(testIssuer, middleware.CookieOptions{AccessTTL: time.Hour, RefreshTTL: time.Hour})
	return NewRouter(RouterConfig{CORSOrigins: []string{testOrigin}, Tokens: testIssuer, Handlers: handlers})
}

func bearer(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, _, err := testIssuer.Issue(userID, role, "Tester")
	require.NoError(t, err)
	return "Bearer " + tok
}

type apiResponse struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Details    json.RawMessage `json:"details"`
}

func do(t *testing.T, r http.Handler, method, path, auth string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}
