package auth

import (
	"net/http"
	"time"
)

const (
	// AccessCookieName carries the short-lived access token.
	AccessCookieName = "hockshop_access"
	// RefreshCookieName carries the long-lived refresh token.
	RefreshCookieName = "hockshop_refresh"
)

// CookieConfig controls the attributes applied to the session cookie pair.
type CookieConfig struct {
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CookieManager writes and clears the paired session cookies. Tokens only
// reach browser clients through these cookies; both are HTTP-only so script
// access is impossible.
type CookieManager struct {
	cfg CookieConfig
}

// NewCookieManager builds a manager with sane defaults applied.
func NewCookieManager(cfg CookieConfig) *CookieManager {
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteStrictMode
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	return &CookieManager{cfg: cfg}
}

// Issue sets both session cookies on the response.
func (m *CookieManager) Issue(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, m.cookie(AccessCookieName, accessToken, int(m.cfg.AccessTTL.Seconds())))
	http.SetCookie(w, m.cookie(RefreshCookieName, refreshToken, int(m.cfg.RefreshTTL.Seconds())))
}

// Clear removes both session cookies from the client.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(AccessCookieName, "", -1))
	http.SetCookie(w, m.cookie(RefreshCookieName, "", -1))
}

// ReadAccess extracts the access token cookie from the request.
func (m *CookieManager) ReadAccess(r *http.Request) (string, bool) {
	return readCookie(r, AccessCookieName)
}

// ReadRefresh extracts the refresh token cookie from the request.
func (m *CookieManager) ReadRefresh(r *http.Request) (string, bool) {
	return readCookie(r, RefreshCookieName)
}

func (m *CookieManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.Domain,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: m.cfg.SameSite,
		MaxAge:   maxAge,
	}
}

func readCookie(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
