package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hockshop/hockshop-server/internal/models"
	"github.com/hockshop/hockshop-server/pkg/crypto"
	"github.com/hockshop/hockshop-server/pkg/mail"
)

const (
	defaultVerificationExpiry     = 24 * time.Hour
	defaultVerificationTokenBytes = 32
	verificationCodeDigits        = 6
)

var (
	// ErrVerificationInvalid covers missing, consumed, and expired
	// verification records alike, and unknown emails on the code path, so
	// responses cannot be used to probe which check failed.
	ErrVerificationInvalid = errors.New("email verification: invalid or expired")
	// ErrAlreadyVerified signals a resend request for a verified account.
	ErrAlreadyVerified = errors.New("email verification: already verified")
)

// VerificationOption customises the EmailVerificationService.
type VerificationOption func(*EmailVerificationService)

// WithVerificationLinkBase sets the base URL used in verification links.
func WithVerificationLinkBase(url string) VerificationOption {
	return func(s *EmailVerificationService) {
		s.linkBase = strings.TrimRight(url, "/")
	}
}

// WithVerificationExpiry overrides the record lifetime.
func WithVerificationExpiry(d time.Duration) VerificationOption {
	return func(s *EmailVerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *EmailVerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// EmailVerificationService issues and consumes the link-token/numeric-code
// pairs that confirm a user's email address.
type EmailVerificationService struct {
	db       *gorm.DB
	mailer   mail.Mailer
	linkBase string
	expiry   time.Duration
	now      func() time.Time
}

// NewEmailVerificationService constructs a verification service with the provided dependencies.
func NewEmailVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*EmailVerificationService, error) {
	if db == nil {
		return nil, errors.New("email verification service: db is required")
	}

	service := &EmailVerificationService{
		db:     db,
		mailer: mailer,
		expiry: defaultVerificationExpiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueAndSend creates a fresh link-token/code pair for the user and emails
// both. Existing records for the user are purged first so at most one active
// pair exists at any time.
func (s *EmailVerificationService) IssueAndSend(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return errors.New("email verification service: user is required")
	}

	token, err := crypto.GenerateToken(defaultVerificationTokenBytes)
	if err != nil {
		return fmt.Errorf("email verification service: generate token: %w", err)
	}

	code, err := crypto.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return fmt.Errorf("email verification service: generate code: %w", err)
	}

	now := s.now()
	record := models.EmailVerification{
		UserID:    user.ID,
		LinkToken: token,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Delete(&models.EmailVerification{}).Error; err != nil {
		return fmt.Errorf("email verification service: cleanup existing: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("email verification service: create record: %w", err)
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{user.Email},
			Subject: "Confirm your Hockshop account",
			Body:    s.verificationBody(user.FirstName, token, code),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("email verification service: send email: %w", mailErr)
		}
	}

	return nil
}

// VerifyByLink consumes a link token, marking the user verified. The sibling
// numeric code dies with the record.
func (s *EmailVerificationService) VerifyByLink(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrVerificationInvalid
	}

	var record models.EmailVerification
	err := s.db.WithContext(ctx).
		Where("link_token = ?", token).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVerificationInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("email verification service: find record: %w", err)
	}

	return s.consume(ctx, &record)
}

// VerifyByCode consumes a numeric code for the account registered under the
// given email. An unknown email and a wrong code are indistinguishable.
func (s *EmailVerificationService) VerifyByCode(ctx context.Context, email, code string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrVerificationInvalid
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVerificationInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("email verification service: find user: %w", err)
	}

	var record models.EmailVerification
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", user.ID, code).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVerificationInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("email verification service: find record: %w", err)
	}

	return s.consume(ctx, &record)
}

// Resend purges any outstanding records for the user and issues a fresh pair.
func (s *EmailVerificationService) Resend(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return errors.New("email verification service: user is required")
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	return s.IssueAndSend(ctx, user)
}

// consume atomically invalidates the record and flips the user to verified.
// The guarded DELETE is the commit point: of two concurrent requests
// presenting the same record, exactly one observes RowsAffected == 1.
func (s *EmailVerificationService) consume(ctx context.Context, record *models.EmailVerification) (*models.User, error) {
	now := s.now()

	if !record.ExpiresAt.After(now) {
		// Stale record; remove it eagerly rather than waiting for the sweep.
		s.db.WithContext(ctx).Delete(&models.EmailVerification{}, "id = ?", record.ID)
		return nil, ErrVerificationInvalid
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", record.ID, now).
		Delete(&models.EmailVerification{})
	if result.Error != nil {
		return nil, fmt.Errorf("email verification service: consume record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrVerificationInvalid
	}

	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", record.UserID).
		Update("verified", true).Error; err != nil {
		return nil, fmt.Errorf("email verification service: mark verified: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", record.UserID).
		Delete(&models.EmailVerification{}).Error; err != nil {
		return nil, fmt.Errorf("email verification service: purge siblings: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", record.UserID).Error; err != nil {
		return nil, fmt.Errorf("email verification service: load user: %w", err)
	}

	return &user, nil
}

// CleanupExpired removes records past their expiry. Called by the maintenance
// sweep; handlers never trust a record without checking expiry themselves.
func (s *EmailVerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.EmailVerification{})
	if result.Error != nil {
		return 0, fmt.Errorf("email verification service: cleanup expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *EmailVerificationService) verificationLink(token string) string {
	if s.linkBase == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.linkBase, token)
}

func (s *EmailVerificationService) verificationBody(firstName, token, code string) string {
	greeting := "Hello"
	if strings.TrimSpace(firstName) != "" {
		greeting = "Hello " + strings.TrimSpace(firstName)
	}

	return fmt.Sprintf(
		"%s,\n\nConfirm your email address by visiting the link below:\n%s\n\nOr enter this code in the app: %s\n\nIf you did not create an account, you can ignore this message.\n",
		greeting, s.verificationLink(token), code,
	)
}
