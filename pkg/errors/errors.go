// Package errors carries the storefront's error taxonomy: a stable code per
// failure class, its HTTP status, and what part of it a client may see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeInsufficientStock    Code = "INSUFFICIENT_STOCK"
	CodeCartItemsUnavailable Code = "CART_ITEMS_UNAVAILABLE"
	CodeEmptyCart            Code = "EMPTY_CART"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeIdempotency          Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit            Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal             Code = "INTERNAL_ERROR"
	CodeDependency           Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage replaces the error's own message when that is hidden
	// or empty.
	PublicMessage  string
	DetailsAllowed bool
	MessageExposed bool
}

// client builds metadata for a caller mistake: the message is shown.
func client(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, MessageExposed: true}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:           client(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:         client(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:            client(http.StatusForbidden, "access denied", false),
	CodeNotFound:             client(http.StatusNotFound, "resource not found", false),
	CodeConflict:             client(http.StatusConflict, "conflict detected", false),
	CodeInsufficientStock:    client(http.StatusBadRequest, "insufficient stock", true),
	CodeCartItemsUnavailable: client(http.StatusBadRequest, "some items in your cart are no longer available", true),
	CodeEmptyCart:            client(http.StatusBadRequest, "cart is empty", false),
	CodeInvalidTransition:    client(http.StatusBadRequest, "status transition not allowed", true),
	CodeIdempotency:          client(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:            client(http.StatusTooManyRequests, "rate limit exceeded", false),

	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "dependency unavailable",
	},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

// Error is a coded failure with optional client-facing detail lines and an
// optional cause kept for logs.
type Error struct {
	code    Code
	message string
	details []string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches cause to a coded error. A nil cause is the same as New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() []string {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the human-readable lines sent as the envelope's details.
// Empty lines are dropped.
func (e *Error) WithDetails(lines ...string) *Error {
	if e == nil {
		return nil
	}
	e.details = e.details[:0:0]
	for _, line := range lines {
		if line != "" {
			e.details = append(e.details, line)
		}
	}
	return e
}

// Public returns the status, message and details a client is allowed to see.
func (e *Error) Public() (int, string, []string) {
	meta := MetadataFor(e.Code())
	msg := meta.PublicMessage
	if meta.MessageExposed && e.Message() != "" {
		msg = e.Message()
	}
	var details []string
	if meta.DetailsAllowed && len(e.Details()) > 0 {
		details = e.Details()
	}
	return meta.HTTPStatus, msg, details
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	s := string(e.code) + ": " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As finds the first *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
