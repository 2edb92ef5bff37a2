package dto

import (
	"errors"
	"net/http"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// Codes raised by the HTTP layer itself. Everything else is a domain code.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeTenantRequired  = "TENANT_REQUIRED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeAlreadyExists   = "ALREADY_EXISTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:          http.StatusBadRequest,
	shared.CodeConfiguration:       http.StatusBadRequest,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeInvalidState:        http.StatusUnprocessableEntity,
	shared.CodeInsufficientStock:   http.StatusUnprocessableEntity,
	shared.CodeReconciliation:      http.StatusUnprocessableEntity,
	shared.CodeRunInProgress:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeSupplierAPI:         http.StatusBadGateway,
	shared.CodeTransactionFailed:   http.StatusInternalServerError,

	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeTenantRequired:  http.StatusBadRequest,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError turns an error into its status and response body. Errors
// without a code and rolled back transactions without a coded cause are
// reported without their text.
func FromError(err error) (int, ErrorInfo) {
	code := shared.CodeOf(err)
	switch code {
	case "":
		return http.StatusInternalServerError, ErrorInfo{Code: ErrCodeInternal, Message: "An unexpected error occurred"}
	case shared.CodeTransactionFailed:
		return http.StatusInternalServerError, ErrorInfo{Code: code, Message: shared.ErrTransactionFailed.Message}
	}

	message := err.Error()
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == code {
		message = domainErr.Message
	}
	return GetHTTPStatus(code), ErrorInfo{Code: code, Message: message}
}
