// Package apperr defines the error kinds services return and the HTTP status
// each one maps to. Untyped errors are storage or programming failures and
// surface as 500.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a referenced lead or customer does not exist. Not retried.
	KindNotFound
	// KindValidation: the input, or the lead's current state, rules the
	// action out. Never auto-corrected.
	KindValidation
	// KindBadRequest: the request itself could not be decoded.
	KindBadRequest
	// KindProvider: the outbound messaging provider failed. The attempt is
	// already recorded.
	KindProvider
	// KindSignatureInvalid: an inbound webhook failed its authenticity check
	// and was rejected before any processing.
	KindSignatureInvalid
)

var kindNames = map[Kind]string{
	KindNotFound:         "not_found",
	KindValidation:       "validation",
	KindBadRequest:       "bad_request",
	KindProvider:         "provider",
	KindSignatureInvalid: "signature_invalid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a typed service error. Details, when set, are returned to the
// client next to Message.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindSignatureInvalid:
		return http.StatusForbidden
	case KindProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithOp names the operation in Error() output. It mutates e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches response details. It mutates e.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Validation(message string) *Error { return New(KindValidation, message) }

func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// Provider wraps the transport failure of an outbound send.
func Provider(message string, err error) *Error {
	return &Error{Kind: KindProvider, Message: message, Err: err}
}

func SignatureInvalid(message string) *Error { return New(KindSignatureInvalid, message) }

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetKind returns the kind of the first *Error in err's chain, or
// KindUnknown.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
