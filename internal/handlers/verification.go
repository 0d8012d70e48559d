package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hockshop/hockshop-server/internal/services"
	appErrors "github.com/hockshop/hockshop-server/pkg/errors"
	"github.com/hockshop/hockshop-server/pkg/logger"
	"github.com/hockshop/hockshop-server/pkg/metrics"
	"github.com/hockshop/hockshop-server/pkg/response"
)

// VerificationHandler serves the email verification endpoints: the link a
// browser follows, the code entered in the app, and resend.
type VerificationHandler struct {
	verification *services.EmailVerificationService
	accounts     *services.AccountService
	clientURL    string
	log          *zap.Logger
}

// NewVerificationHandler constructs a VerificationHandler. clientURL is where
// the browser lands after following a verification link.
func NewVerificationHandler(
	verification *services.EmailVerificationService,
	accounts *services.AccountService,
	clientURL string,
) (*VerificationHandler, error) {
	if verification == nil || accounts == nil {
		return nil, errors.New("verification handler: all dependencies are required")
	}

	return &VerificationHandler{
		verification: verification,
		accounts:     accounts,
		clientURL:    strings.TrimRight(clientURL, "/"),
		log:          logger.WithModule("handlers.verification"),
	}, nil
}

// VerifyByLink consumes the token from a clicked email link. The caller is a
// browser, so success redirects into the client app and failure renders a
// short human-readable message instead of the JSON envelope.
func (h *VerificationHandler) VerifyByLink(c *gin.Context) {
	token := c.Query("token")

	_, err := h.verification.VerifyByLink(requestContext(c), token)
	if err != nil {
		metrics.VerificationEvents.WithLabelValues("link", "failure").Inc()
		if errors.Is(err, services.ErrVerificationInvalid) {
			c.String(http.StatusBadRequest, "This verification link is invalid or has expired.")
			return
		}
		h.log.Error("link verification failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	metrics.VerificationEvents.WithLabelValues("link", "success").Inc()
	c.Redirect(http.StatusFound, h.clientURL+"/login?verified=1")
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// VerifyByCode consumes the numeric code sent alongside the link. An unknown
// email and a wrong code return the identical error.
func (h *VerificationHandler) VerifyByCode(c *gin.Context) {
	var req verifyCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	_, err := h.verification.VerifyByCode(requestContext(c), req.Email, req.Code)
	if err != nil {
		metrics.VerificationEvents.WithLabelValues("code", "failure").Inc()
		if errors.Is(err, services.ErrVerificationInvalid) {
			response.Error(c, appErrors.ErrInvalidOrExpiredCode)
			return
		}
		h.log.Error("code verification failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	metrics.VerificationEvents.WithLabelValues("code", "success").Inc()
	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Resend invalidates any outstanding verification pair for the account and
// issues a fresh one.
func (h *VerificationHandler) Resend(c *gin.Context) {
	var req resendRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	user, err := h.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.Error(c, appErrors.ErrUserNotFound)
			return
		}
		h.log.Error("resend lookup failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	if err := h.verification.Resend(ctx, user); err != nil {
		if errors.Is(err, services.ErrAlreadyVerified) {
			response.Success(c, http.StatusOK, gin.H{
				"ok":      true,
				"code":    appErrors.ErrAlreadyVerified.Code,
				"message": appErrors.ErrAlreadyVerified.Message,
			})
			return
		}
		h.log.Error("resend failed", zap.String("user_id", user.ID), zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ok": true})
}
