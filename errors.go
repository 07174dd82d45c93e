package pdftemplate

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes callers need to tell apart.
var (
	ErrNotFound        = errors.New("pdftemplate: not found")
	ErrInvalidTemplate = errors.New("pdftemplate: invalid template")
	ErrInvalidInput    = errors.New("pdftemplate: invalid input")
	ErrMergeFailed     = errors.New("pdftemplate: merge failed")
	ErrUnauthorized    = errors.New("pdftemplate: unauthorized")
	ErrConflict        = errors.New("pdftemplate: conflict")
)

// Error represents a failure of a specific operation.
// It wraps an underlying error and includes the operation name for context.
type Error struct {
	Op  string // operation name, e.g. "Render", "SaveMapping"
	Err error  // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdftemplate.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pdftemplate.%s: unknown error", e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// OpError wraps err with the operation name. It returns nil when err is nil.
func OpError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// NotFoundf returns an error wrapping ErrNotFound with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Invalidf returns an error wrapping ErrInvalidInput with a formatted detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
