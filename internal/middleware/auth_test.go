package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/hockshop/hockshop-server/internal/auth"
)

const testServiceKey = "pre-shared-service-key-for-tests"

func newAuthTestRig(t *testing.T, clock func() time.Time) (*gin.Engine, *iauth.TokenService, *iauth.CookieManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := iauth.NewTokenService(iauth.TokenConfig{
		AccessSecret:  "access-secret-for-tests-0123456789",
		RefreshSecret: "refresh-secret-for-tests-0123456789",
		Issuer:        "hockshop-test",
		AccessTTL:     15 * time.Minute,
		Clock:         clock,
	})
	require.NoError(t, err)

	cookies := iauth.NewCookieManager(iauth.CookieConfig{})

	r := gin.New()
	r.Use(Authenticate(tokens, cookies, testServiceKey))
	r.GET("/protected", func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		require.True(t, ok)

		switch v := caller.(type) {
		case iauth.TrustedService:
			c.JSON(http.StatusOK, gin.H{"caller": "service"})
		case iauth.AuthenticatedUser:
			c.JSON(http.StatusOK, gin.H{"caller": "user", "id": v.ID})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"caller": "unknown"})
		}
	})

	return r, tokens, cookies
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func TestAuthenticateServiceKey(t *testing.T) {
	r, _, _ := newAuthTestRig(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(ServiceKeyHeader, testServiceKey)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"caller":"service"`)
}

func TestAuthenticateWrongServiceKeyFallsThroughToCookie(t *testing.T) {
	r, _, _ := newAuthTestRig(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(ServiceKeyHeader, "wrong-key")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "ACCESS_TOKEN_MISSING", errorCode(t, w))
}

func TestAuthenticateValidCookie(t *testing.T) {
	r, tokens, _ := newAuthTestRig(t, nil)

	access, err := tokens.SignAccess("user-1", "broker")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: iauth.AccessCookieName, Value: access})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"id":"user-1"`)
}

func TestAuthenticateMissingCookie(t *testing.T) {
	r, _, _ := newAuthTestRig(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "ACCESS_TOKEN_MISSING", errorCode(t, w))
}

func TestAuthenticateExpiredCookie(t *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r, tokens, _ := newAuthTestRig(t, func() time.Time { return current })

	access, err := tokens.SignAccess("user-1", "broker")
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: iauth.AccessCookieName, Value: access})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Expired is a distinct code so the client knows a refresh may succeed.
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "ACCESS_TOKEN_EXPIRED", errorCode(t, w))
}

func TestAuthenticateGarbageCookie(t *testing.T) {
	r, _, _ := newAuthTestRig(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: iauth.AccessCookieName, Value: "tampered"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Tampered tokens force a re-login, not a refresh attempt.
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "ACCESS_TOKEN_MISSING", errorCode(t, w))
}
