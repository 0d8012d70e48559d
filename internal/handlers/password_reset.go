package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hockshop/hockshop-server/internal/services"
	appErrors "github.com/hockshop/hockshop-server/pkg/errors"
	"github.com/hockshop/hockshop-server/pkg/logger"
	"github.com/hockshop/hockshop-server/pkg/metrics"
	"github.com/hockshop/hockshop-server/pkg/response"
)

// PasswordResetHandler serves the forgot-password and reset-password endpoints.
type PasswordResetHandler struct {
	resets *services.PasswordResetService
	log    *zap.Logger
}

// NewPasswordResetHandler constructs a PasswordResetHandler.
func NewPasswordResetHandler(resets *services.PasswordResetService) (*PasswordResetHandler, error) {
	if resets == nil {
		return nil, errors.New("password reset handler: reset service is required")
	}

	return &PasswordResetHandler{
		resets: resets,
		log:    logger.WithModule("handlers.password_reset"),
	}, nil
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Forgot issues a reset token when the email matches a verified account. The
// response is identical whether or not such an account exists.
func (h *PasswordResetHandler) Forgot(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Request(requestContext(c), req.Email); err != nil {
		h.log.Error("reset request failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// Reset consumes a reset token and stores the new password. A consumed or
// expired token fails; so does any replay of a token that already succeeded.
func (h *PasswordResetHandler) Reset(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.Complete(requestContext(c), req.Token, req.Password); err != nil {
		metrics.PasswordResets.WithLabelValues("failure").Inc()
		if errors.Is(err, services.ErrResetInvalid) {
			response.Error(c, appErrors.ErrInvalidOrExpiredToken)
			return
		}
		h.log.Error("reset completion failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	metrics.PasswordResets.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{"ok": true})
}
