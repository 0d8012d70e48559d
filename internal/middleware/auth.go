package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/hockshop/hockshop-server/internal/auth"
	appErrors "github.com/hockshop/hockshop-server/pkg/errors"
	"github.com/hockshop/hockshop-server/pkg/response"
)

const (
	// ServiceKeyHeader is the header trusted machine callers present instead
	// of a session cookie.
	ServiceKeyHeader = "X-Service-Key"

	ctxCallerKey = "authCaller"
)

// Authenticate is the per-request gateway deciding who is calling. A request
// bearing the correct pre-shared service key is a trusted machine caller with
// no per-user identity; anything else must carry a valid access cookie.
// Missing and expired cookies produce distinct codes so clients know whether
// to attempt a refresh or force a re-login.
func Authenticate(tokens *iauth.TokenService, cookies *iauth.CookieManager, serviceKey string) gin.HandlerFunc {
	serviceKey = strings.TrimSpace(serviceKey)

	return func(c *gin.Context) {
		if serviceKey != "" {
			presented := strings.TrimSpace(c.GetHeader(ServiceKeyHeader))
			if presented != "" && constantTimeEqual(presented, serviceKey) {
				c.Set(ctxCallerKey, iauth.TrustedService{})
				c.Next()
				return
			}
		}

		token, ok := cookies.ReadAccess(c.Request)
		if !ok {
			response.Error(c, appErrors.ErrAccessTokenMissing)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token, iauth.FamilyAccess)
		if err != nil {
			if errors.Is(err, iauth.ErrTokenExpired) {
				response.Error(c, appErrors.ErrAccessTokenExpired)
			} else {
				response.Error(c, appErrors.ErrAccessTokenMissing)
			}
			c.Abort()
			return
		}

		c.Set(ctxCallerKey, iauth.AuthenticatedUser{
			ID:       claims.UserID,
			Username: claims.Username,
		})

		c.Next()
	}
}

// CallerFrom extracts the authenticated caller placed by Authenticate.
func CallerFrom(c *gin.Context) (iauth.Caller, bool) {
	v, ok := c.Get(ctxCallerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(iauth.Caller)
	return caller, ok
}

func constantTimeEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
