// Package werr defines the warchest error taxonomy as wrapped sentinel
// values, so callers can classify failures with errors.Is while the
// underlying message still carries the offending detail.
package werr

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrBusy            = errors.New("busy")
	ErrUnavailable     = errors.New("unavailable")
	ErrTimeout         = errors.New("ETIMEDOUT")
	ErrIntegrity       = errors.New("integrity violation")
	ErrFatal           = errors.New("fatal")
)

// Wrap associates msg with kind so errors.Is(err, kind) still matches after
// fmt.Errorf("%w") style propagation up the stack.
func Wrap(kind error, msg string) error {
	return &werrWrapped{kind: kind, msg: msg}
}

// Wrapf is Wrap with an underlying cause appended via %w semantics.
func Wrapf(kind error, msg string, cause error) error {
	return &werrWrapped{kind: kind, msg: msg, cause: cause}
}

type werrWrapped struct {
	kind  error
	msg   string
	cause error
}

func (e *werrWrapped) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *werrWrapped) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.kind
}

// Is lets errors.Is(err, werr.ErrNotFound) match regardless of which cause
// chain produced it.
func (e *werrWrapped) Is(target error) bool {
	return e.kind == target
}
