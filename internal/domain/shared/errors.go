package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so sentinel checks
// keep working for errors created with a more specific message.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// ErrorCode returns the error code
func (e *DomainError) ErrorCode() string {
	return e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across bounded contexts
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidState        = "INVALID_STATE"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeSupplierAPI         = "SUPPLIER_API_ERROR"
	CodeReconciliation      = "RECONCILIATION_ERROR"
	CodeTransactionFailed   = "TRANSACTION_FAILED"
	CodeRunInProgress       = "RUN_IN_PROGRESS"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrRunInProgress       = NewDomainError(CodeRunInProgress, "A run for this key is already in progress")
	ErrConfiguration       = NewDomainError(CodeConfiguration, "Invalid configuration")
	ErrTransactionFailed   = NewDomainError(CodeTransactionFailed, "Transaction failed and was rolled back")
)

// NewValidationError creates a VALIDATION_ERROR with the given message.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a NOT_FOUND error naming the missing resource.
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, resource+" not found")
}

// NewInvalidStateError creates an INVALID_STATE error.
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// NewConfigurationError creates a CONFIGURATION_ERROR.
func NewConfigurationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConfiguration, fmt.Sprintf(format, args...))
}

// TransactionError wraps a failure raised inside a transaction scope.
// The whole unit of work has been rolled back when it is returned.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transaction failed: %v", e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is reports TRANSACTION_FAILED for every TransactionError
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailed
}

// ErrorCode reports the code of the wrapped error, or TRANSACTION_FAILED
// when the cause carries none.
func (e *TransactionError) ErrorCode() string {
	if code := CodeOf(e.Err); code != "" {
		return code
	}
	return CodeTransactionFailed
}

// NewTransactionError wraps err unless it is nil or already a TransactionError.
func NewTransactionError(op string, err error) error {
	if err == nil {
		return nil
	}
	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}

// CodedError is implemented by errors that carry a taxonomy code
type CodedError interface {
	error
	ErrorCode() string
}

// CodeOf extracts the code of the outermost coded error in err's chain.
func CodeOf(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return ""
}
