package model

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed failure taxonomy shared by all platform adapters.
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "validation_error"
	ErrCodeAuthFailed        ErrorCode = "auth_failed"
	ErrCodeTokenExpired      ErrorCode = "token_expired"
	ErrCodeRateLimited       ErrorCode = "rate_limited"
	ErrCodePermissionDenied  ErrorCode = "permission_denied"
	ErrCodeInvalidMedia      ErrorCode = "invalid_media"
	ErrCodePublishFailed     ErrorCode = "publish_failed"
	ErrCodeNetworkError      ErrorCode = "network_error"
	ErrCodeJobCreationFailed ErrorCode = "job_creation_failed"
)

// PublishError is the typed result of a failed adapter call. Platform error
// codes are translated into this taxonomy inside the adapter; the dispatcher
// converts it once into the job's terminal state.
type PublishError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *PublishError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure class is worth another attempt.
func (e *PublishError) Retryable() bool {
	switch e.Code {
	case ErrCodeRateLimited, ErrCodePublishFailed, ErrCodeNetworkError:
		return true
	}
	return false
}

// UserActionable reports whether the user must intervene (e.g. reconnect the
// platform account) before a retry could ever succeed.
func (e *PublishError) UserActionable() bool {
	switch e.Code {
	case ErrCodeTokenExpired, ErrCodeAuthFailed, ErrCodePermissionDenied:
		return true
	}
	return false
}

func NewPublishError(code ErrorCode, message string, cause error) *PublishError {
	return &PublishError{Code: code, Message: message, Cause: cause}
}

// ClassifyError extracts the taxonomy code from err. Errors that are not a
// PublishError count as network errors: the adapters classify everything they
// see, so an unclassified error escaped through transport plumbing.
func ClassifyError(err error) *PublishError {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe
	}
	return &PublishError{Code: ErrCodeNetworkError, Message: "unclassified error", Cause: err}
}
