package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized      ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden         ErrorType = "FORBIDDEN"
	ErrorTypeConflict          ErrorType = "CONFLICT"
	ErrorTypeInsufficientFunds ErrorType = "INSUFFICIENT_FUNDS"
	ErrorTypeInternal          ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidLoanTerms ErrorCode = "INVALID_LOAN_TERMS"
	ErrCodeAmountOverCap    ErrorCode = "AMOUNT_OVER_SUBTYPE_CAP"
	ErrCodeInvalidDecision  ErrorCode = "INVALID_DECISION"
	ErrCodeInvalidWindow    ErrorCode = "INVALID_WINDOW"

	ErrCodeRequestNotFound     ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeRepaymentNotFound   ErrorCode = "REPAYMENT_NOT_FOUND"
	ErrCodeAssociationNotFound ErrorCode = "ASSOCIATION_NOT_FOUND"

	ErrCodeRoleNotRequired    ErrorCode = "ROLE_NOT_REQUIRED"
	ErrCodeNotRequester       ErrorCode = "NOT_REQUESTER_OR_VALIDATOR"
	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"

	ErrCodeDuplicateValidation ErrorCode = "DUPLICATE_VALIDATION"
	ErrCodeTerminalStatus      ErrorCode = "REQUEST_IN_TERMINAL_STATUS"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeVersionConflict     ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeRepaymentOverflow   ErrorCode = "REPAYMENT_EXCEEDS_OUTSTANDING"
	ErrCodeNotALoan            ErrorCode = "REQUEST_NOT_A_LOAN"

	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

// InsufficientFundsDetails carries the shortfall context a caller needs to
// decide without re-querying the balance. Amounts are in cents.
type InsufficientFundsDetails struct {
	AvailableBalance int64 `json:"available_balance"`
	Shortage         int64 `json:"shortage"`
}

// ConflictDetails reports the request's current status so a caller that lost
// a race can resynchronize.
type ConflictDetails struct {
	CurrentStatus string `json:"current_status"`
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

func NewConflictErrorWithStatus(message string, code ErrorCode, currentStatus string) *AppError {
	return NewConflictError(message, code).WithDetails(ConflictDetails{CurrentStatus: currentStatus})
}

func NewInsufficientFundsError(availableBalance, shortage int64) *AppError {
	return &AppError{
		Type:       ErrorTypeInsufficientFunds,
		Code:       ErrCodeInsufficientFunds,
		Message:    "insufficient association funds for this amount",
		StatusCode: http.StatusUnprocessableEntity,
		Details:    InsufficientFundsDetails{AvailableBalance: availableBalance, Shortage: shortage},
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrRequestNotFound     = NewNotFoundError("expense request not found", ErrCodeRequestNotFound)
	ErrRepaymentNotFound   = NewNotFoundError("loan repayment not found", ErrCodeRepaymentNotFound)
	ErrAssociationNotFound = NewNotFoundError("association not found", ErrCodeAssociationNotFound)

	ErrRoleNotRequired = NewForbiddenError("caller's role is not a required validator for this request", ErrCodeRoleNotRequired)
	ErrNotRequester    = NewForbiddenError("only the requester or a required validator may cancel", ErrCodeNotRequester)

	ErrVersionConflict = NewConflictError("request was modified concurrently, retry with fresh state", ErrCodeVersionConflict)

	ErrInvalidToken = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
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
