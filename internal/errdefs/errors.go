// Package errdefs defines the error taxonomy shared by the hyperkit packages.
//
// Every error returned by source resolution, the operation tracker and the
// container manager unwraps to one of the sentinels below, so callers test
// with errors.Is:
//
//	if errors.Is(err, errdefs.ErrBadRequest) {
//	    // the server refused the action
//	}
//
// Validation errors are returned before any request is sent. Operational
// errors are returned after a submitted operation fails, is cancelled, or
// does not finish in time. Transport errors (dial, TLS, I/O) are not wrapped
// into this taxonomy.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrImageIdentifierRequired = errors.New("image identifier required: one of alias, fingerprint, properties or empty must be given")
	ErrInvalidImageAttributes  = errors.New("invalid image attributes")
	ErrInvalidProtocol         = errors.New("invalid protocol")
	ErrMissingProfiles         = errors.New("missing profiles")
)

// Operational errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrTimeout    = errors.New("operation timed out")
	ErrCancelled  = errors.New("operation cancelled")
)

// Errors mapped from non-operation HTTP failures.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrServer    = errors.New("server error")
)

// ValidationError reports a rejected caller input.
type ValidationError struct {
	// Field is the option or attribute that was rejected.
	Field string
	// Value is what the caller supplied, rendered for display.
	Value string
	// Err is the sentinel this error unwraps to.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s=%q", e.Err, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid returns a ValidationError for field wrapping sentinel.
func Invalid(sentinel error, field, value string) error {
	return &ValidationError{Field: field, Value: value, Err: sentinel}
}

// MissingProfiles returns a ValidationError listing the absent profile names.
func MissingProfiles(names []string) error {
	return &ValidationError{Field: "profiles", Value: strings.Join(names, ","), Err: ErrMissingProfiles}
}

// OperationError reports a server-side failure, either of a submitted
// operation or of a synchronous request.
type OperationError struct {
	// OperationID correlates the error with the server operation, if any.
	OperationID string
	// StatusCode is the HTTP or operation status code reported by the server.
	StatusCode int
	// Message is the server's error message, verbatim.
	Message string
	// Err is the sentinel this error unwraps to.
	Err error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.OperationID != "" {
		fmt.Fprintf(&b, " (operation %s)", e.OperationID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *OperationError) Unwrap() error { return e.Err }

// FromStatus maps an HTTP status code to the matching sentinel.
// Codes below 400 map to nil.
func FromStatus(code int) error {
	switch {
	case code < 400:
		return nil
	case code == 404:
		return ErrNotFound
	case code == 401 || code == 403:
		return ErrForbidden
	case code < 500:
		return ErrBadRequest
	default:
		return ErrServer
	}
}

// IsValidation reports whether err was raised before any request was sent.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Classified reports whether err belongs to this taxonomy. Transport and
// context errors do not.
func Classified(err error) bool {
	if err == nil {
		return false
	}
	if IsValidation(err) {
		return true
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return true
	}
	for _, sentinel := range []error{ErrBadRequest, ErrTimeout, ErrCancelled, ErrNotFound, ErrForbidden, ErrServer} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
