package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPeriod    ErrorCode = "INVALID_PERIOD"
	ErrCodePeriodNotFound   ErrorCode = "PERIOD_NOT_FOUND"

	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodePasswordChangeRequired ErrorCode = "PASSWORD_CHANGE_REQUIRED"
	ErrCodeInvalidToken           ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"

	ErrCodePersistenceFailed   ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeRehydrationFailed   ErrorCode = "REHYDRATION_FAILED"
	ErrCodeSessionLookupFailed ErrorCode = "SESSION_LOOKUP_FAILED"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy carrying the underlying error, so the shared
// sentinel values stay immutable.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// Is lets errors.Is match any derived copy against its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

var (
	ErrInvalidCredentials     = NewUnauthorizedError("invalid email or password", ErrCodeInvalidCredentials)
	ErrPasswordChangeRequired = NewConflictError("a password change is required before signing in", ErrCodePasswordChangeRequired)
	ErrInvalidToken           = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired           = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)

	ErrPersistenceFailed   = NewInternalError("failed to persist session state", ErrCodePersistenceFailed)
	ErrSessionLookupFailed = NewExternalError("failed to look up the active period", ErrCodeSessionLookupFailed)
	ErrUpstreamUnavailable = NewExternalError("academy API is unavailable", ErrCodeUpstreamUnavailable)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
