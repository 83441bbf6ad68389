package tool

import (
	"fmt"

	"github.com/sweetpotato0/pinecone/errors"
)

// Error is a recoverable tool failure. The agent loop renders it into the
// transcript instead of aborting the turn.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Unwrap exposes the error kind so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds a tool error of the given kind. A nil kind means invalid input.
func Errorf(kind error, format string, args ...any) *Error {
	if kind == nil {
		kind = errors.ErrInvalidInput
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsToolError reports whether err is a recoverable tool error.
func IsToolError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
