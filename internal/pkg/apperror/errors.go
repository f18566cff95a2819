package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeStateConflict    ErrorCode = "STATE_CONFLICT"
	ErrCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"
	ErrCodeProvider         ErrorCode = "PROVIDER_ERROR"
	ErrCodeNoEscrow         ErrorCode = "NO_ESCROW"
	ErrCodeUnknownProvider  ErrorCode = "UNKNOWN_PROVIDER"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeSignatureInvalid:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeProvider, ErrCodeNoEscrow, ErrCodeUnknownProvider:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeStateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsStateConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeStateConflict
}

// Status returns the HTTP status an error maps to, defaulting to 500 for
// anything that is not an AppError.
func Status(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

var (
	ErrPaymentNotFound    = New(ErrCodeNotFound, "payment not found")
	ErrEscrowNotFound     = New(ErrCodeNotFound, "escrow account not found")
	ErrDisputeNotFound    = New(ErrCodeNotFound, "dispute not found")
	ErrOccupationNotFound = New(ErrCodeNotFound, "occupation request not found")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "authentication required")
	ErrForbidden          = New(ErrCodeForbidden, "insufficient permissions")
	ErrSignatureInvalid   = New(ErrCodeSignatureInvalid, "webhook signature invalid")
	ErrUnknownProvider    = New(ErrCodeUnknownProvider, "unknown payment provider")
	ErrNoEscrow           = New(ErrCodeNoEscrow, "no escrow account exists for this payment")
)
