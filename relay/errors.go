/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"errors"
	"fmt"
)

// Error kinds reported to clients. None of them close the connection.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict error")
	ErrNotFound   = errors.New("not found error")
	ErrAuth       = errors.New("auth error")
	ErrFull       = errors.New("full error")
	ErrRateLimit  = errors.New("rate limit error")
)

// Error is a request failure sent back to the requesting client only.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// kindLabel names an error kind for logs and metrics.
func kindLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrFull):
		return "full"
	case errors.Is(err, ErrRateLimit):
		return "rate_limited"
	default:
		return "unknown"
	}
}
