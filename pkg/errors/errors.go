package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrBorrowerNotFound      = errors.New("borrower not found")
	ErrBorrowerAlreadyExists = errors.New("borrower already exists")
	ErrInstallmentNotFound   = errors.New("installment not found")
	ErrInvalidPaidDate       = errors.New("paid date is required and must be a valid date")
	ErrInvalidStartDate      = errors.New("start date must be a valid date")
	ErrInvalidStatus         = errors.New("invalid installment status")
	ErrInvalidPeriod         = errors.New("unsupported reporting period")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeBorrowerNotFound      = "BORROWER_NOT_FOUND"
	ErrCodeBorrowerAlreadyExists = "BORROWER_ALREADY_EXISTS"
	ErrCodeInstallmentNotFound   = "INSTALLMENT_NOT_FOUND"
	ErrCodeInvalidPaidDate       = "INVALID_PAID_DATE"
	ErrCodeInvalidStartDate      = "INVALID_START_DATE"
	ErrCodeInvalidStatus         = "INVALID_STATUS"
	ErrCodeInvalidPeriod         = "INVALID_PERIOD"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapBorrowerNotFound(phone string) *BusinessError {
	return NewBusinessError(
		ErrCodeBorrowerNotFound,
		fmt.Sprintf("Borrower with phone %s not found", phone),
		ErrBorrowerNotFound,
	)
}

func WrapBorrowerAlreadyExists(phone string) *BusinessError {
	return NewBusinessError(
		ErrCodeBorrowerAlreadyExists,
		fmt.Sprintf("Borrower with phone %s already exists", phone),
		ErrBorrowerAlreadyExists,
	)
}

func WrapInstallmentNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment with ID %s not found", id),
		ErrInstallmentNotFound,
	)
}

func WrapInvalidPaidDate(raw string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaidDate,
		fmt.Sprintf("Cannot parse paid date %q", raw),
		ErrInvalidPaidDate,
	)
}

func WrapInvalidStartDate(raw string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStartDate,
		fmt.Sprintf("Cannot parse start date %q", raw),
		ErrInvalidStartDate,
	)
}

func WrapInvalidStatus(status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStatus,
		fmt.Sprintf("Unknown installment status %q", status),
		ErrInvalidStatus,
	)
}

func WrapInvalidPeriod(period string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPeriod,
		fmt.Sprintf("Unsupported reporting period %q", period),
		ErrInvalidPeriod,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
