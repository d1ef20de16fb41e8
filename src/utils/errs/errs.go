// Package errs defines the error kinds every component reports.
// Callers match kinds with errors.Is, never by message.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrOwnership      = errors.New("ownership")
	ErrSelfLicense    = errors.New("self license")
	ErrValidation     = errors.New("validation")
	ErrPrecision      = errors.New("precision")
	ErrConflict       = errors.New("conflict")
	ErrQuery          = errors.New("query")
	ErrSettlement     = errors.New("settlement")
	ErrFundingTimeout = errors.New("funding timeout")
)

// Error carries the kind, a human readable reason and the underlying cause
type Error struct {
	Kind   error
	Reason string
	Err    error
}

func (self *Error) Error() string {
	msg := self.Kind.Error() + ": " + self.Reason
	if self.Err != nil {
		msg += ": " + self.Err.Error()
	}
	return msg
}

func (self *Error) Unwrap() []error {
	out := []error{self.Kind}
	if self.Kind == ErrPrecision {
		// Precision loss is a validation failure
		out = append(out, ErrValidation)
	}
	if self.Err != nil {
		out = append(out, self.Err)
	}
	return out
}

func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Wrap(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(ErrNotFound, format, args...)
}

func Ownership(format string, args ...any) *Error {
	return New(ErrOwnership, format, args...)
}

func SelfLicense(format string, args ...any) *Error {
	return New(ErrSelfLicense, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(ErrValidation, format, args...)
}

func Precision(format string, args ...any) *Error {
	return New(ErrPrecision, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(ErrConflict, format, args...)
}

// Kind returns the kind of err, nil if err doesn't carry one
func Kind(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
