package app

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by a service matches exactly one of
// these with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrExtraction           = errors.New("extraction error")
	ErrExtractionEmpty      = errors.New("no text extracted from document")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrStore                = errors.New("store error")
	ErrTemplate             = errors.New("template error")
	ErrGeneration           = errors.New("generation error")
	ErrNotFound             = errors.New("not found")
)

// ErrTurnNotPersisted marks a chat whose answer was generated but could not
// be saved. It is always carried inside an ErrStore error.
var ErrTurnNotPersisted = errors.New("answer generated but chat turn not persisted")

var (
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
)

// Error records which operation failed, the kind of failure and its cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func validationError(op, msg string) *Error {
	return &Error{Kind: ErrValidation, Op: op, Err: errors.New(msg)}
}

// Op returns the operation recorded on err, or "" when err is not an *Error.
func Op(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
