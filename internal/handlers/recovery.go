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
	"github.com/hockshop/hockshop-server/pkg/response"
)

// RecoveryHandler serves the identity recovery endpoint: given one identifier,
// it returns the counterpart.
type RecoveryHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

// NewRecoveryHandler constructs a RecoveryHandler.
func NewRecoveryHandler(accounts *services.AccountService) (*RecoveryHandler, error) {
	if accounts == nil {
		return nil, errors.New("recovery handler: account service is required")
	}

	return &RecoveryHandler{
		accounts: accounts,
		log:      logger.WithModule("handlers.recovery"),
	}, nil
}

type recoverIdentityRequest struct {
	Value string `json:"value"`
}

// Recover looks up an account by email or username and returns the other
// identifier. A miss is a successful response with ok=false, not an error.
func (h *RecoveryHandler) Recover(c *gin.Context) {
	var req recoverIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.ErrValueRequired)
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		response.Error(c, appErrors.ErrValueRequired)
		return
	}

	result, err := h.accounts.RecoverIdentity(requestContext(c), req.Value)
	if err != nil {
		h.log.Error("identity recovery failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
