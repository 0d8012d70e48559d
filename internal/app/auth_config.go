package app

import (
	"net/http"
	"strings"

	"github.com/hockshop/hockshop-server/internal/auth"
	"github.com/hockshop/hockshop-server/internal/database"
	"github.com/hockshop/hockshop-server/pkg/mail"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the token service.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	accessTTL := c.JWT.AccessTTL
	if accessTTL <= 0 {
		accessTTL = auth.DefaultAccessTokenTTL
	}

	refreshTTL := c.JWT.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTokenTTL
	}

	return auth.TokenConfig{
		AccessSecret:  c.JWT.AccessSecret,
		RefreshSecret: c.JWT.RefreshSecret,
		Issuer:        c.JWT.Issuer,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// CookieConfig converts AuthConfig into the parameters expected by the cookie manager.
func (c AuthConfig) CookieConfig() auth.CookieConfig {
	sameSite := http.SameSiteStrictMode
	switch strings.ToLower(c.Cookie.SameSite) {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	return auth.CookieConfig{
		Domain:     c.Cookie.Domain,
		Secure:     c.Cookie.Secure,
		SameSite:   sameSite,
		AccessTTL:  c.JWT.AccessTTL,
		RefreshTTL: c.JWT.RefreshTTL,
	}
}

// DatabaseConfig converts the config file shape into connection options.
func (c DatabaseConfig) DatabaseConfig() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	switch strings.ToLower(c.Driver) {
	case "postgres", "postgresql":
		cfg.Host = c.Postgres.Host
		cfg.Port = c.Postgres.Port
		cfg.Name = c.Postgres.Database
		cfg.User = c.Postgres.Username
		cfg.Password = c.Postgres.Password
	case "mysql":
		cfg.Host = c.MySQL.Host
		cfg.Port = c.MySQL.Port
		cfg.Name = c.MySQL.Database
		cfg.User = c.MySQL.Username
		cfg.Password = c.MySQL.Password
	}

	return cfg
}

// SMTPSettings converts EmailConfig into the mailer's settings.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// VerificationLinkBase is the URL prefix embedded in verification email links.
// It points at this server's browser-facing verification endpoint.
func (c ClientConfig) VerificationLinkBase() string {
	return strings.TrimRight(c.PublicURL, "/") + "/api/auth/verify-email"
}

// ResetLinkBase is the URL prefix embedded in password reset email links.
// It points at the client app's reset form.
func (c ClientConfig) ResetLinkBase() string {
	return strings.TrimRight(c.BaseURL, "/") + "/reset-password"
}
