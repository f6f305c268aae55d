package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error category.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindConflict           Kind = "CONFLICT"
	KindUnverifiedConflict Kind = "UNVERIFIED_CONFLICT"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidCode        Kind = "INVALID_CODE"
	KindExpired            Kind = "EXPIRED"
	KindAlreadyVerified    Kind = "ALREADY_VERIFIED"
	KindDelivery           Kind = "DELIVERY_ERROR"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindEmailNotVerified   Kind = "EMAIL_NOT_VERIFIED"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Error carries a Kind, a human message and the HTTP status it maps to.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation signals a request that failed field validation.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Status: http.StatusBadRequest}
}

// Conflict signals a uniqueness violation against a verified account.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Status: http.StatusConflict}
}

// UnverifiedConflict signals that the email is registered but not yet verified,
// so the client should resend the verification code instead of signing up.
func UnverifiedConflict(message string) *Error {
	return &Error{Kind: KindUnverifiedConflict, Message: message, Status: http.StatusConflict}
}

// NotFound signals a missing resource.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Status: http.StatusNotFound}
}

// NotFoundf is NotFound with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

// InvalidCredentials is the single undifferentiated login failure. It never
// distinguishes an unknown email from a wrong password.
func InvalidCredentials(message string) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: message, Status: http.StatusUnauthorized}
}

// InvalidCode signals a verification code that does not match the stored hash.
func InvalidCode(message string) *Error {
	return &Error{Kind: KindInvalidCode, Message: message, Status: http.StatusBadRequest}
}

// Expired signals a verification code past its TTL.
func Expired(message string) *Error {
	return &Error{Kind: KindExpired, Message: message, Status: http.StatusBadRequest}
}

// AlreadyVerified signals a verification attempt on a verified account.
func AlreadyVerified(message string) *Error {
	return &Error{Kind: KindAlreadyVerified, Message: message, Status: http.StatusBadRequest}
}

// Delivery signals a failure to hand a message to the mail transport.
func Delivery(message string, err error) *Error {
	return &Error{Kind: KindDelivery, Message: message, Status: http.StatusBadGateway, Err: err}
}

// Unauthenticated signals a missing, malformed, revoked or expired session token.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, Status: http.StatusUnauthorized}
}

// EmailNotVerified signals a verified-only route accessed by an unverified account.
func EmailNotVerified(message string) *Error {
	return &Error{Kind: KindEmailNotVerified, Message: message, Status: http.StatusForbidden}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusOf extracts the HTTP status from err, or 500 for foreign errors.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}
