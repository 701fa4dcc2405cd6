package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found
// or is not owned by the caller.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates that the claimed owner is missing or differs from the authenticated caller.
var ErrUnauthorized = errors.New("unauthorized")

// ErrCreditLimitExceeded indicates that a credit account's debt would go above its limit.
var ErrCreditLimitExceeded = errors.New("credit limit exceeded")

// ErrInsufficientFunds indicates that a non-credit account would be overdrawn.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrConcurrentModification indicates a serialization conflict. Retryable.
var ErrConcurrentModification = errors.New("concurrent modification")

// ErrSyncTimeout indicates that a reconciliation pass exceeded its time budget. Retryable.
var ErrSyncTimeout = errors.New("sync timeout")

// ErrPartialBatchFailure indicates a bulk operation where some items failed and others succeeded.
var ErrPartialBatchFailure = errors.New("partial batch failure")

// ErrInternal indicates an unexpected infrastructure failure.
var ErrInternal = errors.New("internal error")

// AppError carries an HTTP-ish status code alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError. err may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e.Err == nil {
		return ErrInternal
	}
	return e.Err
}

// LimitError reports a business rejection with the numbers a caller needs to explain it.
// Amounts are in minor currency units.
type LimitError struct {
	Kind      error // ErrCreditLimitExceeded or ErrInsufficientFunds
	AccountID string
	Available int64
	Requested int64
}

// NewCreditLimitError builds a LimitError for a credit account.
func NewCreditLimitError(accountID string, available, requested int64) *LimitError {
	return &LimitError{Kind: ErrCreditLimitExceeded, AccountID: accountID, Available: available, Requested: requested}
}

// NewInsufficientFundsError builds a LimitError for a non-credit account.
func NewInsufficientFundsError(accountID string, available, requested int64) *LimitError {
	return &LimitError{Kind: ErrInsufficientFunds, AccountID: accountID, Available: available, Requested: requested}
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v on account %s: available %s, requested %s",
		e.Kind, e.AccountID, minorToString(e.Available), minorToString(e.Requested))
}

func (e *LimitError) Unwrap() error {
	return e.Kind
}

func minorToString(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}

// IsRetryable reports whether a caller may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrSyncTimeout)
}

// IsTerminal reports whether the error is a definitive rejection that retrying cannot change.
func IsTerminal(err error) bool {
	for _, target := range []error{ErrUnauthorized, ErrNotFound, ErrCreditLimitExceeded, ErrInsufficientFunds, ErrValidation, ErrDuplicate} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrCreditLimitExceeded):
		return "CREDIT_LIMIT_EXCEEDED"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrDuplicate):
		return "DUPLICATE"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	case errors.Is(err, ErrSyncTimeout):
		return "SYNC_TIMEOUT"
	case errors.Is(err, ErrPartialBatchFailure):
		return "PARTIAL_BATCH_FAILURE"
	default:
		return "INTERNAL"
	}
}

// FromCode maps a code produced by Code back to its sentinel error.
func FromCode(code string) error {
	switch code {
	case "UNAUTHORIZED":
		return ErrUnauthorized
	case "NOT_FOUND":
		return ErrNotFound
	case "CREDIT_LIMIT_EXCEEDED":
		return ErrCreditLimitExceeded
	case "INSUFFICIENT_FUNDS":
		return ErrInsufficientFunds
	case "VALIDATION_FAILED":
		return ErrValidation
	case "DUPLICATE":
		return ErrDuplicate
	case "CONCURRENT_MODIFICATION":
		return ErrConcurrentModification
	case "SYNC_TIMEOUT":
		return ErrSyncTimeout
	case "PARTIAL_BATCH_FAILURE":
		return ErrPartialBatchFailure
	default:
		return ErrInternal
	}
}
