package registrations

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
)

// Error is a typed lifecycle failure. Kind is one of the Err* sentinels.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func authenticationf(format string, args ...any) error {
	return &Error{Kind: ErrAuthentication, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// isDomainError reports whether err is a typed lifecycle failure. Those are
// terminal and never retried.
func isDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
