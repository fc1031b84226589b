// Package apperr implements the server's error taxonomy as a single
// tagged-variant type with one boundary function mapping a kind to an
// HTTP status and public message.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Kind identifies the class of failure. Kinds are intentionally coarse —
// they map 1:1 to an HTTP status and a fixed (or caller-supplied) public
// message, never to internal detail.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindTokenExpired
	KindTokenInvalid
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindAlreadyExists
	KindValidation
	KindDatabase
	KindExternalService
)

// Error is the single error type handlers and services return. Construct
// one with the Kind-specific helper below rather than a struct literal.
type Error struct {
	Kind    Kind
	Message string // public, user-facing (ignored for kinds with a fixed message)
	Err     error  // wrapped internal cause, logged but never serialized
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func InvalidCredentials() *Error        { return newErr(KindInvalidCredentials, "Invalid email or password", nil) }
func TokenExpired() *Error              { return newErr(KindTokenExpired, "Token has expired", nil) }
func TokenInvalid() *Error              { return newErr(KindTokenInvalid, "Invalid token", nil) }
func Unauthorized() *Error              { return newErr(KindUnauthorized, "Authentication required", nil) }
func Forbidden() *Error                 { return newErr(KindForbidden, "Access denied", nil) }
func NotFound(msg string) *Error        { return newErr(KindNotFound, msg, nil) }
func AlreadyExists(msg string) *Error   { return newErr(KindAlreadyExists, msg, nil) }
func Validation(msg string) *Error      { return newErr(KindValidation, msg, nil) }
func Database(cause error) *Error       { return newErr(KindDatabase, "Database error occurred", cause) }
func ExternalService(cause error) *Error {
	return newErr(KindExternalService, "External service error", cause)
}
func Internal(cause error) *Error { return newErr(KindInternal, "Internal server error", cause) }

// kindStatus maps a Kind to its HTTP status code.
func kindStatus(k Kind) int {
	switch k {
	case KindInvalidCredentials, KindTokenExpired, KindTokenInvalid, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindExternalService:
		return http.StatusBadGateway
	case KindDatabase, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

type wireError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteHTTP is the single boundary function translating an error into an
// HTTP response. Database and internal causes are logged with full detail
// and never echoed to the client.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal(err)
	}

	status := kindStatus(ae.Kind)
	if ae.Kind == KindDatabase || ae.Kind == KindInternal || ae.Kind == KindExternalService {
		log.Ctx(r.Context()).Error().Err(ae.Err).Str("path", r.URL.Path).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wireError{Error: ae.Message, Status: status})
}

// As reports whether err is (or wraps) an *Error of the given kind.
func As(err error, kind Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}
