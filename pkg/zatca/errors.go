package zatca

import (
	"errors"
	"fmt"
)

// Kind classifies a library error.
type Kind int

const (
	// KindValidation marks caller mistakes detected before any network call.
	KindValidation Kind = iota + 1
	// KindRequest marks transport failures and replies carrying an errors array.
	KindRequest
	// KindResponse marks replies that break the documented response contract.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is() checks.
var (
	ErrValidation = errors.New("zatca: validation failed")
	ErrRequest    = errors.New("zatca: request failed")
	ErrResponse   = errors.New("zatca: unexpected response")

	// ErrInvalidEnvironment is returned for unknown environment names.
	ErrInvalidEnvironment = errors.New("zatca: invalid environment")
	// ErrMissingCredentials is returned when an authenticated endpoint is
	// called on a client built without a certificate and secret.
	ErrMissingCredentials = errors.New("zatca: missing credentials")
)

// Error is the single error type returned by this package. It carries a
// diagnostic context map that only ever grows.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	reason  error
	context map[string]any
}

func newError(kind Kind, msg string, reason, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: msg,
		Cause:   cause,
		reason:  reason,
		context: map[string]any{},
	}
}

func newValidationError(msg string, reason error) *Error {
	return newError(KindValidation, msg, reason, nil)
}

func newRequestError(msg string, cause error) *Error {
	return newError(KindRequest, msg, nil, cause)
}

func newResponseError(msg string, cause error) *Error {
	return newError(KindResponse, msg, nil, cause)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels and the specific reason the error was raised with.
func (e *Error) Is(target error) bool {
	if e.reason != nil && target == e.reason {
		return true
	}
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindRequest:
		return target == ErrRequest
	case KindResponse:
		return target == ErrResponse
	}
	return false
}

// WithContext merges ctx into the error context. Existing keys are overwritten
// by ctx, no key is ever removed.
func (e *Error) WithContext(ctx map[string]any) *Error {
	if e.context == nil {
		e.context = make(map[string]any, len(ctx))
	}
	for k, v := range ctx {
		e.context[k] = v
	}
	return e
}

// Context returns a copy of the diagnostic context.
func (e *Error) Context() map[string]any {
	out := make(map[string]any, len(e.context))
	for k, v := range e.context {
		out[k] = v
	}
	return out
}

// Errors returns the gateway error list attached to a failed request, if any.
func (e *Error) Errors() []ErrorDetail {
	details, _ := e.context["errors"].([]ErrorDetail)
	return details
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var zerr *Error
	if errors.As(err, &zerr) {
		return zerr, true
	}
	return nil, false
}
