// Package apierr defines the API error taxonomy shared by every handler.
// Internal failures are classified once, at the response boundary, into a
// machine-readable code plus a localized human message.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable codes. Clients switch on these, never on messages.
const (
	CodeNoPrincipal         = "NO_PRINCIPAL"
	CodeEmployeeUnknown     = "EMPLOYEE_UNKNOWN"
	CodeTenantHeaderMissing = "TENANT_HEADER_MISSING"
	CodeTenantUnknown       = "TENANT_UNKNOWN"
	CodeValidation          = "VALIDATION"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidDate         = "INVALID_DATE"
	CodeMissingKey          = "MISSING_KEY"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeUnknownReference    = "UNKNOWN_REFERENCE"
	CodeRecordNotFound      = "RECORD_NOT_FOUND"
	CodeSchemaObjectMissing = "SCHEMA_OBJECT_MISSING"
	CodeStorage             = "STORAGE"
	CodeInternal            = "INTERNAL"
)

// Error is the typed API error carried from services up to the response boundary.
type Error struct {
	Status  int
	Code    string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail returns the error with an added detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// New builds a typed API error.
func New(status int, code string) *Error {
	return &Error{Status: status, Code: code}
}

// Wrap builds a typed API error preserving the underlying cause for logging.
// The cause never reaches the client.
func Wrap(status int, code string, cause error) *Error {
	return &Error{Status: status, Code: code, cause: cause}
}

// Common constructors used across domains.
func NoPrincipal() *Error     { return New(http.StatusUnauthorized, CodeNoPrincipal) }
func EmployeeUnknown() *Error { return New(http.StatusForbidden, CodeEmployeeUnknown) }
func TenantHeaderMissing() *Error {
	return New(http.StatusBadRequest, CodeTenantHeaderMissing)
}
func TenantUnknown(name string) *Error {
	return New(http.StatusNotFound, CodeTenantUnknown).WithDetail("tenant", name)
}
func RecordNotFound() *Error { return New(http.StatusNotFound, CodeRecordNotFound) }
func Validation(code string) *Error {
	if code == "" {
		code = CodeValidation
	}
	return New(http.StatusBadRequest, code)
}
func Storage(cause error) *Error {
	return Wrap(http.StatusInternalServerError, CodeStorage, cause)
}
func Internal(cause error) *Error {
	return Wrap(http.StatusInternalServerError, CodeInternal, cause)
}

// FromError normalizes any error into a typed API error. Unclassified errors
// become opaque 500s so driver details never leak to clients.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}
