package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hockshop/hockshop-server/internal/handlers/testutil"
	"github.com/hockshop/hockshop-server/internal/models"
)

func TestVerifyEmailByLinkRedirects(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Register("broker", "broker@example.com", "secret123!")

	record := env.VerificationRecord("broker@example.com")

	w := env.Request(http.MethodGet, "/api/auth/verify-email?token="+record.LinkToken, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(t, "http://client.test/login?verified=1", w.Header().Get("Location"))

	// The account is verified and can log in.
	env.Login("broker", "secret123!")

	// The link is single-use.
	w = env.Request(http.MethodGet, "/api/auth/verify-email?token="+record.LinkToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyEmailByLinkInvalidToken(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/verify-email?token=nonsense", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid or has expired")
}

func TestVerifyEmailByCode(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Register("broker", "broker@example.com", "secret123!")

	record := env.VerificationRecord("broker@example.com")

	wrong := "000000"
	if record.Code == wrong {
		wrong = "000001"
	}

	// Wrong code and unknown email produce the identical error.
	w := env.Request(http.MethodPost, "/api/auth/verify-email-code", map[string]string{
		"email": "broker@example.com",
		"code":  wrong,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_OR_EXPIRED_CODE", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodPost, "/api/auth/verify-email-code", map[string]string{
		"email": "stranger@example.com",
		"code":  record.Code,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_OR_EXPIRED_CODE", testutil.ErrorCode(t, w))

	w = env.Request(http.MethodPost, "/api/auth/verify-email-code", map[string]string{
		"email": "broker@example.com",
		"code":  record.Code,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.Login("broker", "secret123!")
}

func TestResendVerification(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Register("broker", "broker@example.com", "secret123!")

	first := env.VerificationRecord("broker@example.com")

	w := env.Request(http.MethodPost, "/api/auth/resend-verification", map[string]string{
		"email": "broker@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	second := env.VerificationRecord("broker@example.com")
	require.NotEqual(t, first.LinkToken, second.LinkToken)

	// The first pair is dead.
	w = env.Request(http.MethodPost, "/api/auth/verify-email-code", map[string]string{
		"email": "broker@example.com",
		"code":  first.Code,
	})
	if first.Code != second.Code {
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestResendVerificationUnknownEmail(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/resend-verification", map[string]string{
		"email": "stranger@example.com",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "USER_NOT_FOUND", testutil.ErrorCode(t, w))
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Register("broker", "broker@example.com", "secret123!")
	env.VerifyEmail("broker@example.com")

	w := env.Request(http.MethodPost, "/api/auth/resend-verification", map[string]string{
		"email": "broker@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ALREADY_VERIFIED")

	// No new verification record was created.
	var count int64
	require.NoError(t, env.DB.Model(&models.EmailVerification{}).Count(&count).Error)
	require.Zero(t, count)
}
