package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/hockshop/hockshop-server/internal/auth"
	"github.com/hockshop/hockshop-server/internal/middleware"
	"github.com/hockshop/hockshop-server/internal/services"
	appErrors "github.com/hockshop/hockshop-server/pkg/errors"
	"github.com/hockshop/hockshop-server/pkg/logger"
	"github.com/hockshop/hockshop-server/pkg/metrics"
	"github.com/hockshop/hockshop-server/pkg/response"
)

// AuthHandler serves registration, login, session refresh, logout, and the
// authenticated profile endpoint.
type AuthHandler struct {
	accounts     *services.AccountService
	verification *services.EmailVerificationService
	tokens       *iauth.TokenService
	cookies      *iauth.CookieManager
	log          *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(
	accounts *services.AccountService,
	verification *services.EmailVerificationService,
	tokens *iauth.TokenService,
	cookies *iauth.CookieManager,
) (*AuthHandler, error) {
	if accounts == nil || verification == nil || tokens == nil || cookies == nil {
		return nil, errors.New("auth handler: all dependencies are required")
	}

	return &AuthHandler{
		accounts:     accounts,
		verification: verification,
		tokens:       tokens,
		cookies:      cookies,
		log:          logger.WithModule("handlers.auth"),
	}, nil
}

type registerRequest struct {
	Login     string `json:"login" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a new unverified account and mails the verification pair.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	user, err := h.accounts.Register(ctx, services.RegisterInput{
		Username:  req.Login,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			response.Error(c, appErrors.ErrUserExists)
			return
		}
		h.log.Error("registration failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	if err := h.verification.IssueAndSend(ctx, user); err != nil {
		// Account exists but the verification pair never reached storage or
		// the mailer. Resend-verification recovers from this state.
		h.log.Error("verification issuance failed",
			zap.String("user_id", user.ID),
			zap.Error(err))
		response.Error(c, appErrors.Wrap(err, "failed to send verification email"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":      user.ID,
		"message": "Registration successful. Check your email to verify your account.",
	})
}

type loginRequest struct {
	LoginOrEmail string `json:"loginOrEmail"`
	Password     string `json:"password"`
}

// Login checks credentials and issues the session cookie pair. Unknown
// identifiers and wrong passwords produce the identical error; only a fully
// correct pair on an unverified account reveals the verification gate.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.ErrMissingCredentials)
		return
	}
	if req.LoginOrEmail == "" || req.Password == "" {
		response.Error(c, appErrors.ErrMissingCredentials)
		return
	}

	user, err := h.accounts.Authenticate(requestContext(c), req.LoginOrEmail, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrInvalidCredentials)
		case errors.Is(err, services.ErrEmailNotVerified):
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrEmailNotVerified)
		default:
			h.log.Error("login failed", zap.Error(err))
			response.Error(c, err)
		}
		return
	}

	if !h.issueSession(c, user.ID, user.Username) {
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, services.NormalizeProfile(user))
}

// Refresh mints a fresh access token from a valid refresh cookie. The refresh
// token itself is re-set but not rotated; it keeps its original expiry.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, ok := h.cookies.ReadRefresh(c.Request)
	if !ok {
		h.cookies.Clear(c.Writer)
		response.Error(c, appErrors.ErrRefreshMissing)
		return
	}

	claims, err := h.tokens.Verify(refreshToken, iauth.FamilyRefresh)
	if err != nil {
		h.cookies.Clear(c.Writer)
		response.Error(c, appErrors.ErrRefreshInvalid)
		return
	}

	accessToken, err := h.tokens.SignAccess(claims.UserID, claims.Username)
	if err != nil {
		h.log.Error("access token signing failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	h.cookies.Issue(c.Writer, accessToken, refreshToken)
	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// Logout clears the session cookie pair. Tokens are stateless, so the cookies
// are the only thing to tear down.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookies.Clear(c.Writer)
	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// Profile returns the authenticated user's normalized profile. The service-key
// path carries no user identity and cannot use this endpoint.
func (h *AuthHandler) Profile(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrAccessTokenMissing)
		return
	}

	user, ok := caller.(iauth.AuthenticatedUser)
	if !ok {
		response.Error(c, appErrors.NewBadRequest("profile requires a user session"))
		return
	}

	profile, err := h.accounts.GetProfile(requestContext(c), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.Error(c, appErrors.ErrUserNotFound)
			return
		}
		h.log.Error("profile lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// issueSession signs both token families and writes the cookie pair. On a
// signing failure it responds with an error and reports false.
func (h *AuthHandler) issueSession(c *gin.Context, userID, username string) bool {
	accessToken, err := h.tokens.SignAccess(userID, username)
	if err != nil {
		h.log.Error("access token signing failed", zap.Error(err))
		response.Error(c, err)
		return false
	}

	refreshToken, err := h.tokens.SignRefresh(userID, username)
	if err != nil {
		h.log.Error("refresh token signing failed", zap.Error(err))
		response.Error(c, err)
		return false
	}

	h.cookies.Issue(c.Writer, accessToken, refreshToken)
	return true
}
