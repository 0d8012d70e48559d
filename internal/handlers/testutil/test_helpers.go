package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/api"
	"github.com/hockshop/hockshop-server/internal/app"
	iauth "github.com/hockshop/hockshop-server/internal/auth"
	"github.com/hockshop/hockshop-server/internal/database"
	"github.com/hockshop/hockshop-server/internal/models"
	"github.com/hockshop/hockshop-server/internal/services"
	"github.com/hockshop/hockshop-server/pkg/response"
)

// ServiceKey is the pre-shared key trusted machine callers use in tests.
const ServiceKey = "test-suite-service-key"

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests. It keeps a cookie jar so the session cookie pair flows
// between requests the way it does in a browser.
type Env struct {
	T            *testing.T
	DB           *gorm.DB
	Router       *gin.Engine
	Tokens       *iauth.TokenService
	Verification *services.EmailVerificationService

	jar map[string]*http.Cookie
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	cfg := &app.Config{
		Server: app.ServerConfig{Port: 0},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				AccessSecret:  "test-suite-access-secret-0123456789",
				RefreshSecret: "test-suite-refresh-secret-0123456789",
				Issuer:        "hockshop-test",
				AccessTTL:     time.Hour,
				RefreshTTL:    24 * time.Hour,
			},
			ServiceKey: ServiceKey,
		},
		Client: app.ClientConfig{
			BaseURL:   "http://client.test",
			PublicURL: "http://server.test",
		},
	}

	tokens, err := iauth.NewTokenService(cfg.Auth.TokenServiceConfig())
	require.NoError(t, err)
	cookies := iauth.NewCookieManager(cfg.Auth.CookieConfig())

	accounts, err := services.NewAccountService(db)
	require.NoError(t, err)
	verification, err := services.NewEmailVerificationService(db, nil,
		services.WithVerificationLinkBase(cfg.Client.VerificationLinkBase()),
	)
	require.NoError(t, err)
	resets, err := services.NewPasswordResetService(db, nil)
	require.NoError(t, err)
	listings, err := services.NewListingService(db)
	require.NoError(t, err)

	router, err := api.NewRouter(db, tokens, cookies, cfg, api.Services{
		Accounts:     accounts,
		Verification: verification,
		Resets:       resets,
		Listings:     listings,
	})
	require.NoError(t, err)

	return &Env{
		T:            t,
		DB:           db,
		Router:       router,
		Tokens:       tokens,
		Verification: verification,
		jar:          make(map[string]*http.Cookie),
	}
}

// Request executes an HTTP request against the test router, sending any
// cookies in the jar and absorbing cookies from the response.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.request(method, path, body, "")
}

// ServiceRequest executes a request carrying the pre-shared service key.
func (e *Env) ServiceRequest(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.request(method, path, body, ServiceKey)
}

func (e *Env) request(method, path string, body any, serviceKey string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if serviceKey != "" {
		req.Header.Set("X-Service-Key", serviceKey)
	}
	for _, c := range e.jar {
		if c.Value != "" {
			req.AddCookie(c)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(e.jar, c.Name)
			continue
		}
		e.jar[c.Name] = c
	}

	return w
}

// Cookie returns the jarred cookie with the given name, if present.
func (e *Env) Cookie(name string) (*http.Cookie, bool) {
	c, ok := e.jar[name]
	return c, ok
}

// SetCookie places a cookie directly into the jar.
func (e *Env) SetCookie(c *http.Cookie) {
	e.jar[c.Name] = c
}

// ClearCookies empties the jar, simulating a fresh browser.
func (e *Env) ClearCookies() {
	e.jar = make(map[string]*http.Cookie)
}

// Register creates an account through the API and returns its id.
func (e *Env) Register(login, email, password string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"login":    login,
		"email":    email,
		"password": password,
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result struct {
		ID string `json:"id"`
	}
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.ID)
	return result.ID
}

// VerifyEmail completes verification for the account via the emailed code.
func (e *Env) VerifyEmail(email string) {
	e.T.Helper()

	record := e.VerificationRecord(email)
	w := e.Request(http.MethodPost, "/api/auth/verify-email-code", map[string]string{
		"email": email,
		"code":  record.Code,
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
}

// VerificationRecord loads the pending verification pair for the email's account.
func (e *Env) VerificationRecord(email string) *models.EmailVerification {
	e.T.Helper()

	var user models.User
	require.NoError(e.T, e.DB.Take(&user, "email = ?", email).Error)

	var record models.EmailVerification
	require.NoError(e.T, e.DB.Take(&record, "user_id = ?", user.ID).Error)
	return &record
}

// Login authenticates and asserts the session cookie pair was issued.
func (e *Env) Login(loginOrEmail, password string) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"loginOrEmail": loginOrEmail,
		"password":     password,
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	_, ok := e.Cookie(iauth.AccessCookieName)
	require.True(e.T, ok)
	_, ok = e.Cookie(iauth.RefreshCookieName)
	require.True(e.T, ok)
}

// RegisterVerifiedUser drives the full register-verify-login flow and leaves
// the session cookies in the jar.
func (e *Env) RegisterVerifiedUser(login, email, password string) string {
	e.T.Helper()

	id := e.Register(login, email, password)
	e.VerifyEmail(email)
	e.Login(login, password)
	return id
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// ErrorCode extracts the stable error code from a failed response.
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success, w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}
