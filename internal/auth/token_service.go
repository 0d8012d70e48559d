package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL defines the fallback validity period for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenFamily selects which signing secret a token belongs to.
type TokenFamily string

const (
	// FamilyAccess tokens are short-lived and presented on every request.
	FamilyAccess TokenFamily = "access"
	// FamilyRefresh tokens are long-lived and used solely to mint new access tokens.
	FamilyRefresh TokenFamily = "refresh"
)

var (
	// ErrTokenInvalid is returned when a token fails signature or claim checks.
	ErrTokenInvalid = errors.New("token: invalid")
	// ErrTokenExpired is returned when a token's expiry has passed.
	ErrTokenExpired = errors.New("token: expired")
)

// TokenConfig bundles the configuration required to build a TokenService.
// Each family uses its own secret so a refresh token can never validate
// under the access-family key.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
}

// Claims represents the custom claims embedded in issued tokens.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"unm"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the two families of signed session tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService constructs a TokenService from the provided configuration.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token service: both signing secrets must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token service: access and refresh secrets must differ")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// SignAccess issues a signed access token for the given user.
func (s *TokenService) SignAccess(userID, username string) (string, error) {
	return s.sign(userID, username, s.accessSecret, s.accessTTL)
}

// SignRefresh issues a signed refresh token for the given user.
func (s *TokenService) SignRefresh(userID, username string) (string, error) {
	return s.sign(userID, username, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) sign(userID, username string, secret []byte, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("token service: user id is required")
	}

	now := s.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Verify parses and validates a signed token against the requested family,
// returning the application claims. Expired tokens report ErrTokenExpired;
// every other failure, including a token signed by the wrong family,
// reports ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string, family TokenFamily) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	secret := s.accessSecret
	if family == FamilyRefresh {
		secret = s.refreshSecret
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}

	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return &claims, nil
}
