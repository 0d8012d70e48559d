package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
// Code values are stable strings clients branch on without parsing prose.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Required fields are missing",
		StatusCode: http.StatusBadRequest,
	}

	ErrMissingCredentials = &AppError{
		Code:       "MISSING_CREDENTIALS",
		Message:    "Login and password are required",
		StatusCode: http.StatusBadRequest,
	}

	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// passwords so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid login or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrEmailNotVerified = &AppError{
		Code:       "EMAIL_NOT_VERIFIED",
		Message:    "Email address has not been verified",
		StatusCode: http.StatusForbidden,
	}

	ErrUserExists = &AppError{
		Code:       "USER_EXISTS",
		Message:    "A user with that login or email already exists",
		StatusCode: http.StatusBadRequest,
	}

	ErrUserNotFound = &AppError{
		Code:       "USER_NOT_FOUND",
		Message:    "User not found",
		StatusCode: http.StatusNotFound,
	}

	ErrAccessTokenMissing = &AppError{
		Code:       "ACCESS_TOKEN_MISSING",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccessTokenExpired = &AppError{
		Code:       "ACCESS_TOKEN_EXPIRED",
		Message:    "Access token has expired",
		StatusCode: http.StatusUnauthorized,
	}

	ErrRefreshMissing = &AppError{
		Code:       "REFRESH_MISSING",
		Message:    "Refresh token is missing",
		StatusCode: http.StatusUnauthorized,
	}

	ErrRefreshInvalid = &AppError{
		Code:       "REFRESH_INVALID",
		Message:    "Refresh token is invalid or expired",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidOrExpiredCode = &AppError{
		Code:       "INVALID_OR_EXPIRED_CODE",
		Message:    "Verification code is invalid or has expired",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidOrExpiredToken = &AppError{
		Code:       "INVALID_OR_EXPIRED_TOKEN",
		Message:    "Token is invalid or has expired",
		StatusCode: http.StatusBadRequest,
	}

	ErrAlreadyVerified = &AppError{
		Code:       "ALREADY_VERIFIED",
		Message:    "Email address is already verified",
		StatusCode: http.StatusOK,
	}

	ErrValueRequired = &AppError{
		Code:       "VALUE_REQUIRED",
		Message:    "A lookup value is required",
		StatusCode: http.StatusBadRequest,
	}

	ErrNotOwner = &AppError{
		Code:       "NOT_OWNER",
		Message:    "You do not own this resource",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
