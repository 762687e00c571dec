// Package apperr defines the error kinds shared by the domain packages.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error so callers can tell bad input from state conflicts
// and authorization failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindInsufficientStock
	KindNotFound
	KindForbidden
	KindBadRequest
	KindConflict
	KindUnauthorized
	KindStorage
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindInvalidArgument:   "invalid argument",
	KindInsufficientStock: "insufficient stock",
	KindNotFound:          "not found",
	KindForbidden:         "forbidden",
	KindBadRequest:        "bad request",
	KindConflict:          "conflict",
	KindUnauthorized:      "unauthorized",
	KindStorage:           "storage failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Sentinels usable with errors.Is.
var (
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrBadRequest        = &Error{Kind: KindBadRequest}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrStorage           = &Error{Kind: KindStorage}
)

// Error is a classified error with a human readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New creates an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Storage wraps a persistence failure unless err is already classified.
func Storage(msg string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return Wrap(KindStorage, msg, err)
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels compare by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument, KindBadRequest:
		return http.StatusBadRequest
	case KindInsufficientStock, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
