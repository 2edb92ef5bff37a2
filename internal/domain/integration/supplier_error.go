package integration

import (
	"errors"
	"fmt"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// ErrorKind classifies a supplier failure
type ErrorKind string

const (
	ErrorKindAuth        ErrorKind = "auth"
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindServer      ErrorKind = "server_error"
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindValidation  ErrorKind = "validation"
)

// Sentinel errors matched by kind through errors.Is
var (
	ErrSupplierAuth        = &SupplierError{Kind: ErrorKindAuth}
	ErrSupplierNotFound    = &SupplierError{Kind: ErrorKindNotFound}
	ErrSupplierRateLimited = &SupplierError{Kind: ErrorKindRateLimited}
	ErrSupplierServer      = &SupplierError{Kind: ErrorKindServer}
	ErrSupplierNetwork     = &SupplierError{Kind: ErrorKindNetwork}
	ErrSupplierValidation  = &SupplierError{Kind: ErrorKindValidation}
)

// SupplierError is a failed call to a supplier API
type SupplierError struct {
	Kind      ErrorKind
	Supplier  string
	Operation string
	// StatusCode is the HTTP status when the transport has one
	StatusCode int
	Message    string
	Err        error
}

func (e *SupplierError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Supplier == "" && e.Operation == "" {
		return fmt.Sprintf("supplier %s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("supplier %s %s: %s: %s", e.Supplier, e.Operation, e.Kind, msg)
}

func (e *SupplierError) Unwrap() error {
	return e.Err
}

// Is matches another SupplierError of the same kind
func (e *SupplierError) Is(target error) bool {
	t, ok := target.(*SupplierError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ErrorCode returns SUPPLIER_API_ERROR
func (e *SupplierError) ErrorCode() string {
	return shared.CodeSupplierAPI
}

// Transient reports whether the call may succeed if repeated
func (e *SupplierError) Transient() bool {
	switch e.Kind {
	case ErrorKindRateLimited, ErrorKindServer, ErrorKindNetwork:
		return true
	default:
		return false
	}
}

// NewSupplierError builds a SupplierError
func NewSupplierError(kind ErrorKind, supplier, op, message string, cause error) *SupplierError {
	return &SupplierError{
		Kind:      kind,
		Supplier:  supplier,
		Operation: op,
		Message:   message,
		Err:       cause,
	}
}

// KindFromStatus maps an HTTP status code to an error kind
func KindFromStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorKindAuth
	case status == 404:
		return ErrorKindNotFound
	case status == 429:
		return ErrorKindRateLimited
	case status >= 500:
		return ErrorKindServer
	default:
		return ErrorKindValidation
	}
}

// IsTransient reports whether err is a transient supplier failure
func IsTransient(err error) bool {
	var se *SupplierError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return false
}
